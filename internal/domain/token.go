package domain

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInterfaceMismatch indicates a ledger response whose union shape does
// not match the known interface. It points at a codec or version mismatch.
var ErrInterfaceMismatch = errors.New("ledger interface mismatch")

// ErrRemoteCall indicates a transport or decoding failure of a remote call.
var ErrRemoteCall = errors.New("remote call failed")

// RemoteCallError describes a failed remote call.
type RemoteCallError struct {
	Method string
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRemoteCall, e.Method, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRemoteCall) match every RemoteCallError.
func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCall
}

// TokenInfo holds the cached token description.
type TokenInfo struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	TotalSupply *big.Int `json:"total_supply"`
	Fee         *big.Int `json:"fee"`
}

// MetadataKind names the variant of a MetadataValue.
type MetadataKind string

// Metadata value variants.
const (
	MetadataText MetadataKind = "Text"
	MetadataNat  MetadataKind = "Nat"
	MetadataInt  MetadataKind = "Int"
	MetadataBlob MetadataKind = "Blob"
)

// MetadataValue is a tagged union over text, nat, int and blob values.
// Only the field matching Kind is set.
type MetadataValue struct {
	Kind MetadataKind `json:"kind"`
	Text string       `json:"text,omitempty"`
	Nat  *big.Int     `json:"nat,omitempty"`
	Int  *big.Int     `json:"int,omitempty"`
	Blob []byte       `json:"blob,omitempty"`
}

// MetadataEntry is a single ledger metadata key/value pair.
type MetadataEntry struct {
	Key   string        `json:"key"`
	Value MetadataValue `json:"value"`
}
