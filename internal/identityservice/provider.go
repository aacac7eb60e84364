package identityservice

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/tokenpkg"
)

// Provider issues delegations from the user's principal to a session key.
//
//go:generate mockgen -source provider.go -destination provider_mock.go -package identityservice
type Provider interface {
	// Delegate returns a signed delegation token for sessionPublicKey (DER)
	// or domain.ErrLoginCancelled when the user abandons the exchange.
	Delegate(ctx context.Context, sessionPublicKey []byte, maxTTL time.Duration) (string, error)
}

// HTTPProvider requests delegations from a remote identity provider.
type HTTPProvider struct {
	baseURL string
	client  *fasthttp.Client
}

// NewHTTPProvider returns a provider talking to baseURL.
func NewHTTPProvider(baseURL string, client *fasthttp.Client) *HTTPProvider {
	if client == nil {
		client = &fasthttp.Client{}
	}

	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type delegationRequest struct {
	SessionPublicKey []byte `json:"session_public_key"`
	MaxTimeToLive    int64  `json:"max_time_to_live"`
}

type delegationResponse struct {
	Delegation string `json:"delegation"`
}

// Delegate implements Provider.
func (p *HTTPProvider) Delegate(ctx context.Context, sessionPublicKey []byte, maxTTL time.Duration) (string, error) {
	body, err := json.Marshal(delegationRequest{
		SessionPublicKey: sessionPublicKey,
		MaxTimeToLive:    maxTTL.Nanoseconds(),
	})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.baseURL + "/delegations")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = p.client.DoDeadline(req, resp, deadline)
	} else {
		err = p.client.Do(req, resp)
	}

	if err != nil {
		return "", fmt.Errorf("identity provider: %w", err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNoContent, fasthttp.StatusGone:
		return "", domain.ErrLoginCancelled
	default:
		return "", fmt.Errorf("identity provider: unexpected status %d", resp.StatusCode())
	}

	var res delegationResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return "", fmt.Errorf("identity provider: decoding response: %w", err)
	}

	if res.Delegation == "" {
		return "", fmt.Errorf("identity provider: empty delegation")
	}

	return res.Delegation, nil
}

// LocalProvider is a development identity provider backed by a root key on disk.
type LocalProvider struct {
	publicKey ed25519.PublicKey
	principal domain.Principal
	maker     tokenpkg.Maker
}

// NewLocalProvider loads or generates the root key in dir and signs delegations in format.
func NewLocalProvider(dir string, format tokenpkg.Format) (*LocalProvider, error) {
	public, private, _, err := LoadOrGenerateKeypair(dir)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return nil, fmt.Errorf("encoding root key: %w", err)
	}

	maker, err := tokenpkg.NewMaker(format, public, private)
	if err != nil {
		return nil, err
	}

	return &LocalProvider{
		publicKey: public,
		principal: domain.SelfAuthenticatingPrincipal(der),
		maker:     maker,
	}, nil
}

// PublicKey returns the key that verifies the provider's delegations.
func (p *LocalProvider) PublicKey() ed25519.PublicKey {
	return p.publicKey
}

// Principal returns the principal the provider delegates.
func (p *LocalProvider) Principal() domain.Principal {
	return p.principal
}

// Delegate implements Provider.
func (p *LocalProvider) Delegate(ctx context.Context, sessionPublicKey []byte, maxTTL time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, _, err := p.maker.CreateToken(p.principal.String(), sessionPublicKey, maxTTL)
	if err != nil {
		return "", err
	}

	return token, nil
}
