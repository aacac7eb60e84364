package identityservice

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
)

// sessionKey is the ephemeral keypair generated for one login.
type sessionKey struct {
	private ed25519.PrivateKey
	der     []byte
}

func newSessionKey() (*sessionKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return nil, fmt.Errorf("encoding session key: %w", err)
	}

	return &sessionKey{private: private, der: der}, nil
}

// delegatedIdentity signs with the session key on behalf of the delegating principal.
type delegatedIdentity struct {
	principal  domain.Principal
	key        *sessionKey
	delegation string
}

func (d *delegatedIdentity) Principal() domain.Principal {
	return d.principal
}

func (d *delegatedIdentity) PublicKey() []byte {
	return d.key.der
}

func (d *delegatedIdentity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(d.key.private, message), nil
}

func (d *delegatedIdentity) Delegation() string {
	return d.delegation
}
