package domain

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed indicates that the session was logged out.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotAuthenticated indicates that no session is active.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStaleResult indicates that a result arrived after its session was replaced.
	ErrStaleResult = errors.New("stale result discarded")
)

// Session holds an authenticated delegated identity.
// It must not be copied after creation.
type Session struct {
	ID            uuid.UUID `json:"id"`
	Identity      Identity  `json:"-"`
	PrincipalText string    `json:"principal"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`

	once sync.Once
	done chan struct{}
}

// NewSession returns an open session for identity.
func NewSession(identity Identity, createdAt, expiresAt time.Time) *Session {
	return &Session{
		ID:            uuid.New(),
		Identity:      identity,
		PrincipalText: identity.Principal().String(),
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		done:          make(chan struct{}),
	}
}

// Close invalidates the session. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel that is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// View names a screen of the wallet.
type View string

// Wallet views.
const (
	ViewWallet   View = "wallet"
	ViewTransfer View = "transfer"
	ViewHistory  View = "history"
)

// ErrUnknownView indicates a view name outside the supported set.
var ErrUnknownView = errors.New("unknown view")

// IsSupportedView returns true if the view is one of the wallet views.
func IsSupportedView(v View) bool {
	switch v {
	case ViewWallet, ViewTransfer, ViewHistory:
		return true
	default:
		return false
	}
}
