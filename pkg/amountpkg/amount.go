// Package amountpkg converts ledger minor-unit amounts to and from decimal display text.
package amountpkg

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
)

// Decimals is the number of fractional digits of the wallet's token.
const Decimals int32 = 8

// ErrInvalidDecimals indicates a negative decimal-places configuration.
var ErrInvalidDecimals = errors.New("invalid decimals")

var decimalText = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ToDisplay returns amount / 10^decimals with exactly decimals fractional digits.
func ToDisplay(amount *big.Int, decimals int32) (string, error) {
	if decimals < 0 {
		return "", ErrInvalidDecimals
	}

	if amount == nil || amount.Sign() < 0 {
		return "", domain.ErrInvalidAmount
	}

	return decimal.NewFromBigInt(amount, -decimals).StringFixed(decimals), nil
}

// MustToDisplay is like ToDisplay but panics on error.
// It is meant for amounts already decoded from the ledger.
func MustToDisplay(amount *big.Int, decimals int32) string {
	s, err := ToDisplay(amount, decimals)
	if err != nil {
		panic(fmt.Sprintf("amountpkg: %v: %v", amount, err))
	}

	return s
}

// FromDisplay parses a non-negative decimal string into minor units.
// More fractional digits than decimals is an error, never a truncation.
func FromDisplay(text string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidDecimals
	}

	text = strings.TrimSpace(text)
	if !decimalText.MatchString(text) {
		return nil, fmt.Errorf("%w: %q is not a non-negative decimal", domain.ErrInvalidAmount, text)
	}

	if dot := strings.IndexByte(text, '.'); dot >= 0 && int32(len(text)-dot-1) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", domain.ErrInvalidAmount, text, decimals)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}

	return d.Shift(decimals).BigInt(), nil
}

// IsValidDisplay reports whether text would be accepted by FromDisplay.
func IsValidDisplay(text string, decimals int32) bool {
	_, err := FromDisplay(text, decimals)
	return err == nil
}
