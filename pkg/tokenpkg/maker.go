// Package tokenpkg issues and verifies delegation tokens that bind a session key to a principal.
package tokenpkg

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken indicates a token with a bad signature or format.
	ErrInvalidToken = errors.New("token is invalid")
	// ErrExpiredToken indicates a token past its expiry.
	ErrExpiredToken = errors.New("token has expired")
	// ErrSigningKeyMissing indicates a verify-only maker was asked to issue a token.
	ErrSigningKeyMissing = errors.New("token maker has no signing key")
)

// Maker is an interface for managing delegation tokens.
type Maker interface {
	// CreateToken creates a token delegating principal to sessionKey for the duration.
	CreateToken(principal string, sessionKey []byte, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Format names a delegation token encoding.
type Format string

// Supported delegation token formats.
const (
	FormatJWT    Format = "jwt"
	FormatPaseto Format = "paseto"
)

// NewMaker returns a maker for the format. A nil private key yields a verify-only maker.
func NewMaker(format Format, publicKey ed25519.PublicKey, privateKey ed25519.PrivateKey) (Maker, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: must be %d bytes", ed25519.PublicKeySize)
	}

	switch format {
	case FormatJWT:
		return &JWTMaker{publicKey: publicKey, privateKey: privateKey}, nil
	case FormatPaseto:
		return &PasetoMaker{publicKey: publicKey, privateKey: privateKey}, nil
	default:
		return nil, fmt.Errorf("unsupported delegation format %q", format)
	}
}
