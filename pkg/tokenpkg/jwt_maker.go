package tokenpkg

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTMaker is an EdDSA JSON Web Token maker.
type JWTMaker struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// CreateToken creates a new token for a specific principal and session key.
func (maker *JWTMaker) CreateToken(principal string, sessionKey []byte, duration time.Duration) (string, *Payload, error) {
	if maker.privateKey == nil {
		return "", nil, ErrSigningKeyMissing
	}

	payload, err := NewPayload(principal, sessionKey, duration)
	if err != nil {
		return "", payload, err
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodEdDSA, payload)
	token, err := jwtToken.SignedString(maker.privateKey)

	return token, payload, err
}

// VerifyToken checks if the token is valid or not.
func (maker *JWTMaker) VerifyToken(token string) (*Payload, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}

		return maker.publicKey, nil
	}

	jwtToken, err := jwt.ParseWithClaims(token, &Payload{}, keyFunc)
	if err != nil {
		verr, ok := err.(*jwt.ValidationError)
		if ok && errors.Is(verr.Inner, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}

		return nil, ErrInvalidToken
	}

	payload, ok := jwtToken.Claims.(*Payload)
	if !ok {
		return nil, ErrInvalidToken
	}

	return payload, nil
}
