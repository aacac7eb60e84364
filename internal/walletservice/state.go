package walletservice

import (
	"math/big"
	"time"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/amountpkg"
)

// Form holds the transfer form fields as typed by the user.
type Form struct {
	Recipient string `json:"to"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo"`
}

// StatusKind names the tone of a status message.
type StatusKind string

// Status kinds.
const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is a transient message shown to the user.
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text"`
	At   time.Time  `json:"at"`
}

// TokenDisplay is the token description ready for display.
type TokenDisplay struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"total_supply"`
	Fee         string `json:"fee"`
}

// Snapshot is a display-ready copy of the wallet state.
type Snapshot struct {
	Authenticated   bool          `json:"authenticated"`
	Principal       string        `json:"principal,omitempty"`
	ShortPrincipal  string        `json:"short_principal,omitempty"`
	View            domain.View   `json:"view,omitempty"`
	Balance         string        `json:"balance,omitempty"`
	Symbol          string        `json:"symbol"`
	Token           *TokenDisplay `json:"token,omitempty"`
	Form            Form          `json:"form"`
	Status          *Status       `json:"status,omitempty"`
	TransferPending bool          `json:"transfer_pending"`
	Loading         bool          `json:"loading"`
}

const (
	shortPrefix = 10
	shortSuffix = 10
	ellipsis    = "..."
)

// ShortPrincipal abbreviates a principal text to its first and last ten characters.
// Texts that would not get shorter are returned unchanged.
func ShortPrincipal(text string) string {
	if len(text) <= shortPrefix+len(ellipsis)+shortSuffix {
		return text
	}

	return text[:shortPrefix] + ellipsis + text[len(text)-shortSuffix:]
}

// State returns a snapshot of the wallet state.
func (s *Service) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Symbol: s.config.DefaultSymbol,
	}

	if s.session == nil {
		return snap
	}

	snap.Authenticated = true
	snap.Principal = s.session.PrincipalText
	snap.ShortPrincipal = ShortPrincipal(snap.Principal)
	snap.View = s.view
	snap.Form = s.form
	snap.TransferPending = s.pending
	snap.Loading = s.loading > 0

	if s.balance != nil {
		snap.Balance = s.display(s.balance)
	}

	if s.token != nil {
		snap.Token = &TokenDisplay{
			Name:        s.token.Name,
			Symbol:      s.token.Symbol,
			TotalSupply: s.display(s.token.TotalSupply),
			Fee:         s.display(s.token.Fee),
		}

		if s.token.Symbol != "" {
			snap.Symbol = s.token.Symbol
		}
	}

	if s.status != nil && (s.config.StatusTTL <= 0 || s.now().Sub(s.status.At) < s.config.StatusTTL) {
		status := *s.status
		snap.Status = &status
	}

	return snap
}

func (s *Service) display(amount *big.Int) string {
	text, err := amountpkg.ToDisplay(amount, s.config.Decimals)
	if err != nil {
		return ""
	}

	return text
}
