// Package randompkg provides functionality for generating random wallet test items.
package randompkg

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := len(alphabet)

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Bytes generates n random bytes.
func Bytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}

	return b
}

// Principal generates a random self-authenticating principal.
func Principal() domain.Principal {
	return domain.SelfAuthenticatingPrincipal(Bytes(44))
}

// Account generates a random account on the default subaccount.
func Account() domain.Account {
	return domain.Account{Owner: Principal()}
}

// BigAmount generates a random non-negative amount below 2^bits.
func BigAmount(bits uint) *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), bits)

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(err)
	}

	return n
}

// AmountBetween generates a random amount between min and max minor units.
func AmountBetween(min, max int64) *big.Int {
	return big.NewInt(min + Intn(int(max-min+1)))
}
