package tokenpkg

import (
	"crypto/ed25519"
	"time"

	"github.com/o1egl/paseto"
)

// PasetoMaker is a PASETO v2 public (Ed25519) token maker.
type PasetoMaker struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// CreateToken creates a new token for a specific principal and session key.
func (maker *PasetoMaker) CreateToken(principal string, sessionKey []byte, duration time.Duration) (string, *Payload, error) {
	if maker.privateKey == nil {
		return "", nil, ErrSigningKeyMissing
	}

	payload, err := NewPayload(principal, sessionKey, duration)
	if err != nil {
		return "", payload, err
	}

	token, err := paseto.NewV2().Sign(maker.privateKey, payload, nil)

	return token, payload, err
}

// VerifyToken checks if the token is valid or not.
func (maker *PasetoMaker) VerifyToken(token string) (*Payload, error) {
	payload := &Payload{}

	err := paseto.NewV2().Verify(token, maker.publicKey, payload, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	err = payload.Valid()
	if err != nil {
		return nil, err
	}

	return payload, nil
}
