package domain

import "errors"

// ErrLoginCancelled indicates that the user closed the external authentication exchange.
var ErrLoginCancelled = errors.New("login cancelled")

// Identity signs remote calls on behalf of a principal.
type Identity interface {
	// Principal returns the account owner the identity acts for.
	Principal() Principal
	// PublicKey returns the DER encoded key that verifies Sign output.
	PublicKey() []byte
	// Sign signs message with the identity's key.
	Sign(message []byte) ([]byte, error)
	// Delegation returns the signed delegation binding PublicKey to Principal,
	// or an empty string for an identity that owns its principal directly.
	Delegation() string
}
