package walletdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
)

// ValidView validates whether the view is one of the wallet views.
var ValidView validator.Func = func(fl validator.FieldLevel) bool {
	if v, ok := fl.Field().Interface().(string); ok {
		return domain.IsSupportedView(domain.View(v))
	}

	return false
}

// MaxMemoBytes is the largest memo the ledger accepts.
const MaxMemoBytes = 32

// ValidMemo validates that the memo fits the ledger limit once encoded as UTF-8 bytes.
var ValidMemo validator.Func = func(fl validator.FieldLevel) bool {
	if memo, ok := fl.Field().Interface().(string); ok {
		return len(memo) <= MaxMemoBytes
	}

	return false
}
