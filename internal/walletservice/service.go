// Package walletservice manages the wallet session and the state shown to the user.
package walletservice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/amountpkg"
)

// IdentityService provides the identity session operations needed by the wallet.
//
//go:generate mockgen -source service.go -destination service_mock.go -package walletservice
type IdentityService interface {
	Login(ctx context.Context) (*domain.Session, bool, error)
	Logout(ctx context.Context, sess *domain.Session) error
}

// LedgerClient provides the ledger operations needed by the wallet.
type LedgerClient interface {
	BalanceOf(ctx context.Context, account domain.Account) (*big.Int, error)
	Transfer(ctx context.Context, req domain.TransferRequest) (domain.TransferOutcome, error)
	Metadata(ctx context.Context) ([]domain.MetadataEntry, error)
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	Fee(ctx context.Context) (*big.Int, error)
	MintingAccount(ctx context.Context) (*domain.Account, error)
}

// ClientFactory binds a ledger client to a session.
type ClientFactory func(sess *domain.Session) LedgerClient

// Status messages.
const (
	MsgFillAllFields    = "Please fill all fields"
	MsgInvalidRecipient = "Invalid recipient"
	MsgInvalidAmount    = "Invalid amount"
	MsgBalanceFailed    = "Failed to fetch balance"
	MsgUnexpectedReply  = "Transfer failed: unexpected ledger response"
)

// Config holds the display settings of the wallet.
type Config struct {
	Decimals      int32
	DefaultSymbol string
	// StatusTTL hides a status message once it is older. Zero keeps it until replaced.
	StatusTTL time.Duration
}

// Service facilitates the wallet controller logic.
type Service struct {
	identity  IdentityService
	newClient ClientFactory
	config    Config
	now       func() time.Time

	loginMu sync.Mutex

	mu      sync.Mutex
	session *domain.Session
	client  LedgerClient
	epoch   uint64
	view    domain.View
	balance *big.Int
	token   *domain.TokenInfo
	form    Form
	status  *Status
	pending bool
	loading int

	// balanceSeq numbers balance requests; balanceApplied is the newest one applied.
	balanceSeq     uint64
	balanceApplied uint64
}

// New returns the wallet controller.
func New(identity IdentityService, newClient ClientFactory, config Config) *Service {
	return &Service{
		identity:  identity,
		newClient: newClient,
		config:    config,
		now:       time.Now,
	}
}

// Login authenticates the user. It is a no-op for an authenticated wallet
// and leaves the state untouched when the user cancels.
func (s *Service) Login(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	s.mu.Lock()
	authenticated := s.session != nil
	s.mu.Unlock()

	if authenticated {
		return nil
	}

	sess, ok, err := s.identity.Login(ctx)
	if err != nil {
		l.Error().Err(err).Send()
		return err
	}

	if !ok {
		return nil
	}

	s.mu.Lock()
	s.session = sess
	s.client = s.newClient(sess)
	s.epoch++
	s.view = domain.ViewWallet
	s.mu.Unlock()

	var g errgroup.Group

	g.Go(func() error {
		_, err := s.RefreshBalance(ctx)
		return err
	})

	g.Go(func() error {
		_, err := s.RefreshTokenInfo(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		l.Info().Err(err).Msg("initial wallet load incomplete")
	}

	return nil
}

// Logout clears the wallet state and closes the session.
// Results of calls still in flight are discarded.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()

	sess := s.session
	if sess == nil {
		s.mu.Unlock()
		return nil
	}

	s.session = nil
	s.client = nil
	s.epoch++
	s.view = ""
	s.balance = nil
	s.token = nil
	s.form = Form{}
	s.status = nil
	s.pending = false
	s.loading = 0

	s.mu.Unlock()

	return s.identity.Logout(ctx, sess)
}

// SetView switches the active view.
func (s *Service) SetView(view domain.View) error {
	if !domain.IsSupportedView(view) {
		return domain.ErrUnknownView
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return domain.ErrNotAuthenticated
	}

	s.view = view

	return nil
}

// UpdateForm replaces the transfer form fields.
func (s *Service) UpdateForm(form Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return domain.ErrNotAuthenticated
	}

	if s.pending {
		return domain.ErrTransferPending
	}

	s.form = form

	return nil
}

// SubmitTransfer validates the form and sends the transfer.
// While a submission is in flight, further submissions fail with domain.ErrTransferPending.
func (s *Service) SubmitTransfer(ctx context.Context) (domain.TransferOutcome, error) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()

	if s.session == nil {
		s.mu.Unlock()
		return domain.TransferOutcome{}, domain.ErrNotAuthenticated
	}

	if s.pending {
		s.mu.Unlock()
		return domain.TransferOutcome{}, domain.ErrTransferPending
	}

	req, err := s.transferRequest()
	if err != nil {
		s.mu.Unlock()
		l.Info().Err(err).Send()

		return domain.TransferOutcome{}, err
	}

	s.pending = true
	epoch := s.epoch
	client := s.client

	s.mu.Unlock()

	outcome, err := client.Transfer(ctx, req)

	s.mu.Lock()

	if s.epoch != epoch {
		s.mu.Unlock()
		return domain.TransferOutcome{}, domain.ErrStaleResult
	}

	s.pending = false

	switch {
	case errors.Is(err, domain.ErrInterfaceMismatch):
		l.Error().Err(err).Msg("transfer result does not match the ledger interface")
		s.setStatus(StatusError, MsgUnexpectedReply)
	case err != nil:
		s.setStatus(StatusError, "Transfer failed: "+err.Error())
	case outcome.Kind() == domain.OutcomeAccepted:
		s.setStatus(StatusSuccess, "Transfer successful! Block: "+outcome.Accepted.BlockIndex.String())
		s.form = Form{}
	default:
		s.setStatus(StatusError, "Transfer failed: "+outcome.Rejected.Reason)
	}

	s.mu.Unlock()

	if err != nil {
		return domain.TransferOutcome{}, err
	}

	if outcome.Kind() == domain.OutcomeAccepted {
		if _, err := s.RefreshBalance(ctx); err != nil {
			l.Info().Err(err).Msg("balance refresh after transfer failed")
		}
	}

	return outcome, nil
}

// transferRequest builds the request from the form. It must be called with mu held.
func (s *Service) transferRequest() (domain.TransferRequest, error) {
	recipient := strings.TrimSpace(s.form.Recipient)
	amountText := strings.TrimSpace(s.form.Amount)

	if recipient == "" || amountText == "" {
		s.setStatus(StatusError, MsgFillAllFields)
		return domain.TransferRequest{}, domain.ErrEmptyField
	}

	to, err := domain.ParseAccount(recipient)
	if err != nil {
		s.setStatus(StatusError, MsgInvalidRecipient)
		return domain.TransferRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidRecipient, err)
	}

	amount, err := amountpkg.FromDisplay(amountText, s.config.Decimals)
	if err != nil {
		s.setStatus(StatusError, MsgInvalidAmount)
		return domain.TransferRequest{}, err
	}

	req := domain.TransferRequest{
		To:     to,
		Amount: amount,
	}

	if s.form.Memo != "" {
		req.Memo = []byte(s.form.Memo)
	}

	return req, nil
}

// RefreshBalance fetches the balance of the session principal's default account.
// A result is discarded when a balance requested later has already been applied.
func (s *Service) RefreshBalance(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()

	if s.session == nil {
		s.mu.Unlock()
		return nil, domain.ErrNotAuthenticated
	}

	client, epoch := s.client, s.epoch
	owner := s.session.Identity.Principal()
	s.loading++
	s.balanceSeq++
	ticket := s.balanceSeq

	s.mu.Unlock()

	balance, err := client.BalanceOf(ctx, domain.Account{Owner: owner})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return nil, domain.ErrStaleResult
	}

	s.loading--

	if ticket < s.balanceApplied {
		return nil, domain.ErrStaleResult
	}

	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		s.setStatus(StatusError, MsgBalanceFailed)

		return nil, err
	}

	s.balance = balance
	s.balanceApplied = ticket

	return new(big.Int).Set(balance), nil
}

// RefreshTokenInfo fetches name, symbol, total supply and fee concurrently.
func (s *Service) RefreshTokenInfo(ctx context.Context) (domain.TokenInfo, error) {
	s.mu.Lock()

	if s.session == nil {
		s.mu.Unlock()
		return domain.TokenInfo{}, domain.ErrNotAuthenticated
	}

	client, epoch := s.client, s.epoch
	s.loading++

	s.mu.Unlock()

	var info domain.TokenInfo

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		info.Name, err = client.Name(gctx)
		return err
	})

	g.Go(func() (err error) {
		info.Symbol, err = client.Symbol(gctx)
		return err
	})

	g.Go(func() (err error) {
		info.TotalSupply, err = client.TotalSupply(gctx)
		return err
	})

	g.Go(func() (err error) {
		info.Fee, err = client.Fee(gctx)
		return err
	})

	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return domain.TokenInfo{}, domain.ErrStaleResult
	}

	s.loading--

	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msg("token info unavailable")
		return domain.TokenInfo{}, err
	}

	s.token = &info

	return info, nil
}

// Metadata returns the ledger metadata.
func (s *Service) Metadata(ctx context.Context) ([]domain.MetadataEntry, error) {
	client, err := s.currentClient()
	if err != nil {
		return nil, err
	}

	return client.Metadata(ctx)
}

// MintingAccount returns the ledger minting account, or nil when there is none.
func (s *Service) MintingAccount(ctx context.Context) (*domain.Account, error) {
	client, err := s.currentClient()
	if err != nil {
		return nil, err
	}

	return client.MintingAccount(ctx)
}

func (s *Service) currentClient() (LedgerClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, domain.ErrNotAuthenticated
	}

	return s.client, nil
}

// Authenticated reports whether a session is active.
func (s *Service) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session != nil
}

func (s *Service) setStatus(kind StatusKind, text string) {
	s.status = &Status{Kind: kind, Text: text, At: s.now()}
}
