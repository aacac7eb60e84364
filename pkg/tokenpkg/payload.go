package tokenpkg

import (
	"time"

	"github.com/google/uuid"
)

// Payload contains the payload data of a delegation token.
type Payload struct {
	ID         uuid.UUID `json:"id"`
	Principal  string    `json:"principal"`
	SessionKey []byte    `json:"session_key"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// NewPayload creates a new token payload for principal and the DER encoded session key.
func NewPayload(principal string, sessionKey []byte, duration time.Duration) (*Payload, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	payload := &Payload{
		ID:         tokenID,
		Principal:  principal,
		SessionKey: sessionKey,
		IssuedAt:   now,
		ExpiredAt:  now.Add(duration),
	}

	return payload, nil
}

// Valid checks if the token payload is valid or not.
func (payload *Payload) Valid() error {
	if time.Now().After(payload.ExpiredAt) {
		return ErrExpiredToken
	}

	return nil
}
