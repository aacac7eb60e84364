package ledgerclient

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/codecpkg"
)

// Opt is the ledger's present/absent wrapper. The zero value is absent.
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Valid: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// MarshalCBOR encodes {"Some": v} or {"None": null}.
func (o Opt[T]) MarshalCBOR() ([]byte, error) {
	if !o.Valid {
		return codecpkg.Marshal(map[string]any{"None": nil})
	}

	return codecpkg.Marshal(map[string]T{"Some": o.Value})
}

// UnmarshalCBOR decodes {"Some": v} or {"None": null}.
func (o *Opt[T]) UnmarshalCBOR(data []byte) error {
	tag, payload, err := decodeUnion(data, "Some", "None")
	if err != nil {
		return err
	}

	if tag == "None" {
		*o = None[T]()
		return nil
	}

	var v T
	if err := codecpkg.Unmarshal(payload, &v); err != nil {
		return err
	}

	*o = Some(v)

	return nil
}

// decodeUnion returns the single tag of an encoded variant and its payload.
// Zero tags, more than one tag or a tag outside tags is an interface mismatch.
func decodeUnion(data []byte, tags ...string) (string, codecpkg.RawMessage, error) {
	var raw map[string]codecpkg.RawMessage
	if err := codecpkg.Unmarshal(data, &raw); err != nil {
		return "", nil, err
	}

	if len(raw) != 1 {
		return "", nil, fmt.Errorf("%w: variant with %d tags", domain.ErrInterfaceMismatch, len(raw))
	}

	for tag, payload := range raw {
		for _, known := range tags {
			if tag == known {
				return tag, payload, nil
			}
		}

		return "", nil, fmt.Errorf("%w: unknown variant tag %q", domain.ErrInterfaceMismatch, tag)
	}

	return "", nil, nil // unreachable
}

type wireAccount struct {
	Owner      []byte      `cbor:"owner"`
	Subaccount Opt[[]byte] `cbor:"subaccount"`
}

func toWireAccount(a domain.Account) wireAccount {
	w := wireAccount{Owner: a.Owner}
	if a.Subaccount != nil {
		w.Subaccount = Some(subaccountBytes(a.Subaccount))
	}

	return w
}

func (w wireAccount) toDomain() (domain.Account, error) {
	if len(w.Owner) > domain.MaxPrincipalLength {
		return domain.Account{}, fmt.Errorf("%w: owner has %d bytes", domain.ErrInterfaceMismatch, len(w.Owner))
	}

	a := domain.Account{Owner: domain.Principal(w.Owner)}

	if w.Subaccount.Valid {
		if len(w.Subaccount.Value) != domain.SubaccountLength {
			return domain.Account{}, fmt.Errorf("%w: subaccount has %d bytes", domain.ErrInterfaceMismatch, len(w.Subaccount.Value))
		}

		var sub domain.Subaccount
		copy(sub[:], w.Subaccount.Value)
		a.Subaccount = &sub
	}

	return a, nil
}

func subaccountBytes(s *domain.Subaccount) []byte {
	b := make([]byte, domain.SubaccountLength)
	copy(b, s[:])

	return b
}

type wireTransferArg struct {
	FromSubaccount Opt[[]byte]   `cbor:"from_subaccount"`
	To             wireAccount   `cbor:"to"`
	Amount         *big.Int      `cbor:"amount"`
	Fee            Opt[*big.Int] `cbor:"fee"`
	Memo           Opt[[]byte]   `cbor:"memo"`
	CreatedAtTime  Opt[uint64]   `cbor:"created_at_time"`
}

func toWireTransferArg(req domain.TransferRequest) (wireTransferArg, error) {
	arg := wireTransferArg{
		To:     toWireAccount(req.To),
		Amount: req.Amount,
	}

	if req.FromSubaccount != nil {
		arg.FromSubaccount = Some(subaccountBytes(req.FromSubaccount))
	}

	if req.Fee != nil {
		arg.Fee = Some(req.Fee)
	}

	if req.Memo != nil {
		arg.Memo = Some(req.Memo)
	}

	if req.CreatedAtTime != nil {
		if req.CreatedAtTime.Before(time.Unix(0, 0)) {
			return wireTransferArg{}, fmt.Errorf("%w: %s is before the unix epoch", domain.ErrInvalidCreatedAt, req.CreatedAtTime)
		}

		arg.CreatedAtTime = Some(uint64(req.CreatedAtTime.UnixNano()))
	}

	return arg, nil
}

type wireTransferError struct {
	Message string `cbor:"message"`
}

func decodeTransferResult(data []byte) (domain.TransferOutcome, error) {
	tag, payload, err := decodeUnion(data, "Ok", "Err")
	if err != nil {
		return domain.TransferOutcome{}, err
	}

	if tag == "Err" {
		var e wireTransferError
		if err := codecpkg.Unmarshal(payload, &e); err != nil {
			return domain.TransferOutcome{}, err
		}

		return domain.Rejected(e.Message), nil
	}

	var blockIndex wireNat
	if err := codecpkg.Unmarshal(payload, &blockIndex); err != nil {
		return domain.TransferOutcome{}, err
	}

	return domain.Accepted(blockIndex.value), nil
}

// wireNat is an unbounded natural number. Negative integers are an interface mismatch.
type wireNat struct {
	value *big.Int
}

func (n *wireNat) UnmarshalCBOR(data []byte) error {
	v := new(big.Int)
	if err := codecpkg.Unmarshal(data, v); err != nil {
		return err
	}

	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative nat %s", domain.ErrInterfaceMismatch, v)
	}

	n.value = v

	return nil
}

// wireMetadataValue decodes the Text/Nat/Int/Blob variant.
type wireMetadataValue struct {
	value domain.MetadataValue
}

func (w *wireMetadataValue) UnmarshalCBOR(data []byte) error {
	tag, payload, err := decodeUnion(data,
		string(domain.MetadataText), string(domain.MetadataNat), string(domain.MetadataInt), string(domain.MetadataBlob))
	if err != nil {
		return err
	}

	v := domain.MetadataValue{Kind: domain.MetadataKind(tag)}

	switch v.Kind {
	case domain.MetadataText:
		err = codecpkg.Unmarshal(payload, &v.Text)
	case domain.MetadataNat:
		var nat wireNat
		err = codecpkg.Unmarshal(payload, &nat)
		v.Nat = nat.value
	case domain.MetadataInt:
		v.Int = new(big.Int)
		err = codecpkg.Unmarshal(payload, v.Int)
	case domain.MetadataBlob:
		err = codecpkg.Unmarshal(payload, &v.Blob)
	}

	if err != nil {
		return err
	}

	w.value = v

	return nil
}

// MarshalCBOR encodes the variant. It is used to build ledger replies in tests.
func (w wireMetadataValue) MarshalCBOR() ([]byte, error) {
	var payload any

	switch w.value.Kind {
	case domain.MetadataText:
		payload = w.value.Text
	case domain.MetadataNat:
		payload = w.value.Nat
	case domain.MetadataInt:
		payload = w.value.Int
	case domain.MetadataBlob:
		payload = w.value.Blob
	default:
		return nil, fmt.Errorf("%w: metadata kind %q", domain.ErrInterfaceMismatch, w.value.Kind)
	}

	return codecpkg.Marshal(map[string]any{string(w.value.Kind): payload})
}

// wireMetadataEntry is the (key, value) tuple of icrc1_metadata.
type wireMetadataEntry struct {
	_     struct{} `cbor:",toarray"`
	Key   string
	Value wireMetadataValue
}

// encodeArgs encodes the argument tuple of a call.
func encodeArgs(args ...any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}

	return codecpkg.Marshal(args)
}

// decodeResult decodes a reply holding exactly one value into v.
func decodeResult(data []byte, v any) error {
	var values []codecpkg.RawMessage
	if err := codecpkg.Unmarshal(data, &values); err != nil {
		return err
	}

	if len(values) != 1 {
		return fmt.Errorf("%w: reply with %d values", domain.ErrInterfaceMismatch, len(values))
	}

	return codecpkg.Unmarshal(values[0], v)
}
