package domain

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrInvalidAmount indicates a malformed, over-precise or negative amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrEmptyField indicates that a required transfer form field is empty.
	ErrEmptyField = errors.New("please fill all fields")
	// ErrInvalidRecipient indicates that the recipient is not a valid account.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrInvalidCreatedAt indicates a transfer creation time before the unix epoch.
	ErrInvalidCreatedAt = errors.New("invalid created at time")
	// ErrTransferPending indicates that a transfer submission is already in flight.
	ErrTransferPending = errors.New("transfer already in progress")
)

// TransferRequest is the input data for a ledger transfer. Nil fields are unset.
type TransferRequest struct {
	To             Account
	Amount         *big.Int
	Fee            *big.Int
	Memo           []byte
	FromSubaccount *Subaccount
	CreatedAtTime  *time.Time
}

// OutcomeKind names the variant of a TransferOutcome.
type OutcomeKind string

// Transfer outcome variants.
const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
)

// TransferAccepted is the ledger's confirmation of a transfer.
type TransferAccepted struct {
	BlockIndex *big.Int `json:"block_index"`
}

// TransferRejected is a ledger business error for a transfer.
type TransferRejected struct {
	Reason string `json:"reason"`
}

// TransferOutcome holds exactly one of Accepted or Rejected.
type TransferOutcome struct {
	Accepted *TransferAccepted `json:"accepted,omitempty"`
	Rejected *TransferRejected `json:"rejected,omitempty"`
}

// Accepted returns an accepted outcome for blockIndex.
func Accepted(blockIndex *big.Int) TransferOutcome {
	return TransferOutcome{Accepted: &TransferAccepted{BlockIndex: blockIndex}}
}

// Rejected returns a rejected outcome with the ledger supplied reason.
func Rejected(reason string) TransferOutcome {
	return TransferOutcome{Rejected: &TransferRejected{Reason: reason}}
}

// Kind reports which variant is populated. It panics when the outcome is
// empty or has both variants, since no decoder produces such a value.
func (o TransferOutcome) Kind() OutcomeKind {
	switch {
	case o.Accepted != nil && o.Rejected == nil:
		return OutcomeAccepted
	case o.Rejected != nil && o.Accepted == nil:
		return OutcomeRejected
	default:
		panic(fmt.Sprintf("domain: malformed transfer outcome %+v", o))
	}
}
