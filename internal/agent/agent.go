// Package agent sends signed canister requests to a replica over HTTP.
package agent

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/codecpkg"
)

var (
	// ErrUnexpectedStatus indicates a replica response with an unknown status or HTTP code.
	ErrUnexpectedStatus = errors.New("unexpected replica response")
	// ErrNoIdentity indicates a request without a signing identity.
	ErrNoIdentity = errors.New("agent has no identity")
)

// RejectError is a canister or replica rejection of a request.
type RejectError struct {
	Code    uint64
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("rejected (code %d): %s", e.Code, e.Message)
}

// Request types.
const (
	RequestQuery = "query"
	RequestCall  = "call"
)

var domainSeparator = []byte("\x0Aic-request")

// Config holds the agent connection settings.
type Config struct {
	Host          string
	Timeout       time.Duration
	IngressExpiry time.Duration
	Client        *fasthttp.Client
}

// Agent signs requests with an identity and posts them to the replica.
type Agent struct {
	host          string
	identity      domain.Identity
	client        *fasthttp.Client
	timeout       time.Duration
	ingressExpiry time.Duration
	now           func() time.Time
}

// New returns an agent bound to identity.
func New(config Config, identity domain.Identity) *Agent {
	client := config.Client
	if client == nil {
		client = &fasthttp.Client{}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	expiry := config.IngressExpiry
	if expiry <= 0 {
		expiry = 4 * time.Minute
	}

	return &Agent{
		host:          strings.TrimRight(config.Host, "/"),
		identity:      identity,
		client:        client,
		timeout:       timeout,
		ingressExpiry: expiry,
		now:           time.Now,
	}
}

type requestContent struct {
	RequestType   string `cbor:"request_type"`
	CanisterID    []byte `cbor:"canister_id"`
	MethodName    string `cbor:"method_name"`
	Arg           []byte `cbor:"arg"`
	Sender        []byte `cbor:"sender"`
	Nonce         []byte `cbor:"nonce"`
	IngressExpiry uint64 `cbor:"ingress_expiry"`
}

type envelope struct {
	Content          requestContent `cbor:"content"`
	SenderPubKey     []byte         `cbor:"sender_pubkey"`
	SenderSig        []byte         `cbor:"sender_sig"`
	SenderDelegation string         `cbor:"sender_delegation"`
}

type reply struct {
	Arg []byte `cbor:"arg"`
}

type response struct {
	Status        string `cbor:"status"`
	Reply         *reply `cbor:"reply"`
	RejectCode    uint64 `cbor:"reject_code"`
	RejectMessage string `cbor:"reject_message"`
}

// Query performs a read-only call of method on canister.
func (a *Agent) Query(ctx context.Context, canister domain.Principal, method string, arg []byte) ([]byte, error) {
	return a.do(ctx, RequestQuery, canister, method, arg)
}

// Call performs a state-changing call of method on canister.
func (a *Agent) Call(ctx context.Context, canister domain.Principal, method string, arg []byte) ([]byte, error) {
	return a.do(ctx, RequestCall, canister, method, arg)
}

func (a *Agent) do(ctx context.Context, requestType string, canister domain.Principal, method string, arg []byte) ([]byte, error) {
	timer := prometheus.NewTimer(requestDuration.WithLabelValues(requestType))
	defer timer.ObserveDuration()

	result, err := a.send(ctx, requestType, canister, method, arg)

	status := "replied"
	if err != nil {
		var reject *RejectError
		if errors.As(err, &reject) {
			status = "rejected"
		} else {
			status = "error"
		}
	}

	requestsTotal.WithLabelValues(requestType, status).Inc()

	return result, err
}

func (a *Agent) send(ctx context.Context, requestType string, canister domain.Principal, method string, arg []byte) ([]byte, error) {
	if a.identity == nil {
		return nil, ErrNoIdentity
	}

	body, err := a.sign(requestType, canister, method, arg)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/api/v2/canister/%s/%s", a.host, canister, requestType))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/cbor")
	req.SetBody(body)

	deadline := a.now().Add(a.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := a.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("posting %s: %w", requestType, err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: http status %d: %s", ErrUnexpectedStatus, code, resp.Body())
	}

	var res response
	if err := codecpkg.Unmarshal(resp.Body(), &res); err != nil {
		return nil, fmt.Errorf("decoding replica response: %w", err)
	}

	switch res.Status {
	case "replied":
		if res.Reply == nil {
			return nil, fmt.Errorf("%w: reply without payload", ErrUnexpectedStatus)
		}

		return res.Reply.Arg, nil
	case "rejected":
		return nil, &RejectError{Code: res.RejectCode, Message: res.RejectMessage}
	default:
		return nil, fmt.Errorf("%w: status %q", ErrUnexpectedStatus, res.Status)
	}
}

func (a *Agent) sign(requestType string, canister domain.Principal, method string, arg []byte) ([]byte, error) {
	nonce := uuid.New()

	content := requestContent{
		RequestType:   requestType,
		CanisterID:    canister,
		MethodName:    method,
		Arg:           arg,
		Sender:        a.identity.Principal(),
		Nonce:         nonce[:],
		IngressExpiry: uint64(a.now().Add(a.ingressExpiry).UnixNano()),
	}

	id, err := RequestID(content)
	if err != nil {
		return nil, err
	}

	signature, err := a.identity.Sign(SignedMessage(id))
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	return codecpkg.Marshal(envelope{
		Content:          content,
		SenderPubKey:     a.identity.PublicKey(),
		SenderSig:        signature,
		SenderDelegation: a.identity.Delegation(),
	})
}

// RequestID returns the hash identifying request content.
func RequestID(content any) ([32]byte, error) {
	data, err := codecpkg.Marshal(content)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encoding request content: %w", err)
	}

	return sha256.Sum256(data), nil
}

// SignedMessage returns the bytes an identity signs for a request id.
func SignedMessage(id [32]byte) []byte {
	return append(append([]byte{}, domainSeparator...), id[:]...)
}
