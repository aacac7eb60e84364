// Package domain provides definitions of all wallet entities.
package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

var (
	// ErrInvalidPrincipal indicates that the principal text is malformed or its checksum does not match.
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrInvalidAccount indicates that the account text is malformed.
	ErrInvalidAccount = errors.New("invalid account")
)

const (
	// MaxPrincipalLength is the maximum number of bytes backing a principal.
	MaxPrincipalLength = 29
	// SubaccountLength is the fixed length of a subaccount.
	SubaccountLength = 32

	selfAuthenticatingSuffix = 0x02
	anonymousSuffix          = 0x04
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the opaque identifier of an account holder.
type Principal []byte

// AnonymousPrincipal returns the principal used by unauthenticated callers.
func AnonymousPrincipal() Principal {
	return Principal{anonymousSuffix}
}

// SelfAuthenticatingPrincipal derives the principal owned by the given DER encoded public key.
func SelfAuthenticatingPrincipal(derPublicKey []byte) Principal {
	sum := sha256.Sum224(derPublicKey)

	p := make(Principal, 0, len(sum)+1)
	p = append(p, sum[:]...)

	return append(p, selfAuthenticatingSuffix)
}

// PrincipalFromText parses the canonical text encoding of a principal.
func PrincipalFromText(text string) (Principal, error) {
	raw := strings.ReplaceAll(text, "-", "")

	decoded, err := principalEncoding.DecodeString(strings.ToUpper(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPrincipal, text, err)
	}

	if len(decoded) < 4 || len(decoded)-4 > MaxPrincipalLength {
		return nil, fmt.Errorf("%w: %q has bad length", ErrInvalidPrincipal, text)
	}

	p := Principal(decoded[4:])

	// Re-encoding checks the checksum, the lowercase alphabet and the grouping at once.
	if p.String() != text {
		return nil, fmt.Errorf("%w: %q is not canonical", ErrInvalidPrincipal, text)
	}

	return p, nil
}

// String returns the canonical text encoding: grouped lowercase base32 of crc32 || bytes.
func (p Principal) String() string {
	buf := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	copy(buf[4:], p)

	encoded := strings.ToLower(principalEncoding.EncodeToString(buf))

	var sb strings.Builder

	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}

		end := i + 5
		if end > len(encoded) {
			end = len(encoded)
		}

		sb.WriteString(encoded[i:end])
	}

	return sb.String()
}

// Equal reports whether both principals have the same bytes.
func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p, other)
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return len(p) == 1 && p[0] == anonymousSuffix
}

// Subaccount distinguishes sub-ledgers under one owner.
type Subaccount [SubaccountLength]byte

// IsDefault reports whether s is the all-zero default subaccount.
func (s Subaccount) IsDefault() bool {
	return s == Subaccount{}
}

// Account holds the owner and the optional subaccount of a token holder.
// A nil Subaccount means the default subaccount.
type Account struct {
	Owner      Principal   `json:"owner"`
	Subaccount *Subaccount `json:"subaccount,omitempty"`
}

func (a Account) effectiveSubaccount() Subaccount {
	if a.Subaccount == nil {
		return Subaccount{}
	}

	return *a.Subaccount
}

// Equal reports whether both accounts have the same owner and subaccount.
func (a Account) Equal(other Account) bool {
	return a.Owner.Equal(other.Owner) && a.effectiveSubaccount() == other.effectiveSubaccount()
}

// String returns the textual account encoding.
// Accounts on the default subaccount are encoded as the owner text alone.
func (a Account) String() string {
	sub := a.effectiveSubaccount()
	if sub.IsDefault() {
		return a.Owner.String()
	}

	trimmed := strings.TrimLeft(hex.EncodeToString(sub[:]), "0")

	return fmt.Sprintf("%s-%s.%s", a.Owner, accountChecksum(a.Owner, sub), trimmed)
}

// ParseAccount parses the textual account encoding produced by Account.String.
func ParseAccount(text string) (Account, error) {
	dot := strings.LastIndexByte(text, '.')
	if dot < 0 {
		owner, err := PrincipalFromText(text)
		if err != nil {
			return Account{}, err
		}

		return Account{Owner: owner}, nil
	}

	head, subHex := text[:dot], text[dot+1:]

	dash := strings.LastIndexByte(head, '-')
	if dash < 0 {
		return Account{}, fmt.Errorf("%w: %q has no checksum", ErrInvalidAccount, text)
	}

	owner, err := PrincipalFromText(head[:dash])
	if err != nil {
		return Account{}, err
	}

	if subHex == "" || len(subHex) > 2*SubaccountLength || strings.HasPrefix(subHex, "0") {
		return Account{}, fmt.Errorf("%w: %q has a non-canonical subaccount", ErrInvalidAccount, text)
	}

	decoded, err := hex.DecodeString(strings.Repeat("0", 2*SubaccountLength-len(subHex)) + subHex)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %q: %v", ErrInvalidAccount, text, err)
	}

	var sub Subaccount
	copy(sub[:], decoded)

	if head[dash+1:] != accountChecksum(owner, sub) {
		return Account{}, fmt.Errorf("%w: %q has a bad checksum", ErrInvalidAccount, text)
	}

	return Account{Owner: owner, Subaccount: &sub}, nil
}

func accountChecksum(owner Principal, sub Subaccount) string {
	h := crc32.NewIEEE()
	_, _ = h.Write(owner) // hash.Hash never returns an error.
	_, _ = h.Write(sub[:])

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], h.Sum32())

	return strings.ToLower(principalEncoding.EncodeToString(sum[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := PrincipalFromText(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
