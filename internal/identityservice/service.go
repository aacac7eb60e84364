// Package identityservice manages authentication sessions of the wallet user.
package identityservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/tokenpkg"
)

// ErrDelegationMismatch indicates a delegation issued for another session key.
var ErrDelegationMismatch = errors.New("delegation does not match the session key")

// DefaultDelegationTTL is the longest delegation requested when none is configured.
const DefaultDelegationTTL = 8 * time.Hour

// Service facilitates identity session logic.
type Service struct {
	provider Provider
	verifier tokenpkg.Maker
	ttl      time.Duration
	now      func() time.Time
}

// New returns identity service that obtains delegations from provider and
// checks them with verifier.
func New(provider Provider, verifier tokenpkg.Maker, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultDelegationTTL
	}

	return &Service{
		provider: provider,
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login runs the delegation exchange for a fresh session key.
// A cancelled exchange returns a nil session, false and no error.
func (s *Service) Login(ctx context.Context) (*domain.Session, bool, error) {
	l := zerolog.Ctx(ctx)

	key, err := newSessionKey()
	if err != nil {
		l.Error().Err(err).Send()
		return nil, false, err
	}

	token, err := s.provider.Delegate(ctx, key.der, s.ttl)
	if errors.Is(err, domain.ErrLoginCancelled) {
		l.Info().Msg("login cancelled by user")
		return nil, false, nil
	}

	if err != nil {
		l.Error().Err(err).Send()
		return nil, false, fmt.Errorf("requesting delegation: %w", err)
	}

	payload, err := s.verifier.VerifyToken(token)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, false, fmt.Errorf("verifying delegation: %w", err)
	}

	if !bytes.Equal(payload.SessionKey, key.der) {
		l.Error().Err(ErrDelegationMismatch).Send()
		return nil, false, ErrDelegationMismatch
	}

	principal, err := domain.PrincipalFromText(payload.Principal)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, false, fmt.Errorf("verifying delegation: %w", err)
	}

	identity := &delegatedIdentity{
		principal:  principal,
		key:        key,
		delegation: token,
	}

	sess := domain.NewSession(identity, s.now(), payload.ExpiredAt)

	l.Info().Str("principal", sess.PrincipalText).Str("session_id", sess.ID.String()).Msg("logged in")

	return sess, true, nil
}

// Logout closes the session. Closing a closed session is a no-op.
func (s *Service) Logout(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return domain.ErrNotAuthenticated
	}

	if !sess.Closed() {
		sess.Close()
		zerolog.Ctx(ctx).Info().Str("session_id", sess.ID.String()).Msg("logged out")
	}

	return nil
}

// PrincipalText returns the canonical text of the session principal.
func (s *Service) PrincipalText(sess *domain.Session) string {
	return sess.Identity.Principal().String()
}
