// Package ledgerclient calls the ICRC-1 interface of a fungible-token ledger canister.
package ledgerclient

import (
	"context"
	"errors"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/codecpkg"
)

// Ledger method names.
const (
	MethodBalanceOf      = "icrc1_balance_of"
	MethodTransfer       = "icrc1_transfer"
	MethodMetadata       = "icrc1_metadata"
	MethodName           = "icrc1_name"
	MethodSymbol         = "icrc1_symbol"
	MethodTotalSupply    = "icrc1_total_supply"
	MethodFee            = "icrc1_fee"
	MethodMintingAccount = "icrc1_minting_account"
)

// Agent provides the replica transport needed by the ledger client.
//
//go:generate mockgen -source client.go -destination client_mock.go -package ledgerclient
type Agent interface {
	Query(ctx context.Context, canister domain.Principal, method string, arg []byte) ([]byte, error)
	Call(ctx context.Context, canister domain.Principal, method string, arg []byte) ([]byte, error)
}

// Client is a ledger client bound to one canister and one session.
type Client struct {
	agent    Agent
	canister domain.Principal
	session  *domain.Session
}

// New returns a ledger client for canister that signs as the session identity.
func New(agent Agent, canister domain.Principal, sess *domain.Session) *Client {
	return &Client{
		agent:    agent,
		canister: canister,
		session:  sess,
	}
}

// BalanceOf returns the balance of account in minor units.
func (c *Client) BalanceOf(ctx context.Context, account domain.Account) (*big.Int, error) {
	var balance wireNat
	if err := c.query(ctx, MethodBalanceOf, &balance, toWireAccount(account)); err != nil {
		return nil, err
	}

	return balance.value, nil
}

// Transfer submits a transfer from the session principal.
// A ledger business error is returned as a Rejected outcome, not as an error.
func (c *Client) Transfer(ctx context.Context, req domain.TransferRequest) (domain.TransferOutcome, error) {
	if req.Amount == nil || req.Amount.Sign() < 0 || (req.Fee != nil && req.Fee.Sign() < 0) {
		return domain.TransferOutcome{}, domain.ErrInvalidAmount
	}

	arg, err := toWireTransferArg(req)
	if err != nil {
		return domain.TransferOutcome{}, err
	}

	var raw codecpkg.RawMessage
	if err := c.invoke(ctx, true, MethodTransfer, &raw, arg); err != nil {
		return domain.TransferOutcome{}, err
	}

	outcome, err := decodeTransferResult(raw)
	if err != nil {
		return domain.TransferOutcome{}, c.classify(ctx, MethodTransfer, err)
	}

	l := zerolog.Ctx(ctx)

	switch outcome.Kind() {
	case domain.OutcomeAccepted:
		callsTotal.WithLabelValues(MethodTransfer, resultAccepted).Inc()
		l.Info().Str("block_index", outcome.Accepted.BlockIndex.String()).Msg("transfer accepted")
	case domain.OutcomeRejected:
		callsTotal.WithLabelValues(MethodTransfer, resultRejected).Inc()
		l.Info().Str("reason", outcome.Rejected.Reason).Msg("transfer rejected")
	}

	return outcome, nil
}

// Metadata returns the ledger metadata entries in ledger order.
func (c *Client) Metadata(ctx context.Context) ([]domain.MetadataEntry, error) {
	var entries []wireMetadataEntry
	if err := c.query(ctx, MethodMetadata, &entries); err != nil {
		return nil, err
	}

	res := make([]domain.MetadataEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, domain.MetadataEntry{Key: e.Key, Value: e.Value.value})
	}

	return res, nil
}

// Name returns the token name.
func (c *Client) Name(ctx context.Context) (string, error) {
	var name string
	if err := c.query(ctx, MethodName, &name); err != nil {
		return "", err
	}

	return name, nil
}

// Symbol returns the token symbol.
func (c *Client) Symbol(ctx context.Context) (string, error) {
	var symbol string
	if err := c.query(ctx, MethodSymbol, &symbol); err != nil {
		return "", err
	}

	return symbol, nil
}

// TotalSupply returns the total token supply in minor units.
func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	var supply wireNat
	if err := c.query(ctx, MethodTotalSupply, &supply); err != nil {
		return nil, err
	}

	return supply.value, nil
}

// Fee returns the transfer fee in minor units.
func (c *Client) Fee(ctx context.Context) (*big.Int, error) {
	var fee wireNat
	if err := c.query(ctx, MethodFee, &fee); err != nil {
		return nil, err
	}

	return fee.value, nil
}

// MintingAccount returns the minting account, or nil when the ledger has none.
func (c *Client) MintingAccount(ctx context.Context) (*domain.Account, error) {
	var opt Opt[wireAccount]
	if err := c.query(ctx, MethodMintingAccount, &opt); err != nil {
		return nil, err
	}

	if !opt.Valid {
		return nil, nil
	}

	account, err := opt.Value.toDomain()
	if err != nil {
		return nil, c.classify(ctx, MethodMintingAccount, err)
	}

	return &account, nil
}

func (c *Client) query(ctx context.Context, method string, out any, args ...any) error {
	return c.invoke(ctx, false, method, out, args...)
}

// invoke performs one remote call and decodes its single result into out.
func (c *Client) invoke(ctx context.Context, update bool, method string, out any, args ...any) error {
	if c.session == nil || c.session.Closed() {
		return domain.ErrSessionClosed
	}

	arg, err := encodeArgs(args...)
	if err != nil {
		return c.classify(ctx, method, err)
	}

	var reply []byte
	if update {
		reply, err = c.agent.Call(ctx, c.canister, method, arg)
	} else {
		reply, err = c.agent.Query(ctx, c.canister, method, arg)
	}

	if err != nil {
		return c.classify(ctx, method, err)
	}

	if err := decodeResult(reply, out); err != nil {
		return c.classify(ctx, method, err)
	}

	if method != MethodTransfer {
		callsTotal.WithLabelValues(method, resultOK).Inc()
	}

	return nil
}

// classify separates interface mismatches from transport and decoding failures.
func (c *Client) classify(ctx context.Context, method string, err error) error {
	l := zerolog.Ctx(ctx)

	if errors.Is(err, domain.ErrInterfaceMismatch) {
		callsTotal.WithLabelValues(method, resultMismatch).Inc()
		l.Error().Err(err).Str("method", method).Msg("ledger response does not match the interface")

		return err
	}

	callsTotal.WithLabelValues(method, resultRemoteError).Inc()
	l.Info().Err(err).Str("method", method).Send()

	return &domain.RemoteCallError{Method: method, Err: err}
}
