package domain

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the byte length of a decoded account identifier.
const AddressLen = 32

// Address identifies an account as a base58-encoded 32-byte value.
// Account addresses are ed25519 curve points; derived addresses (pools,
// escrow vaults) are hash outputs and intentionally off-curve.
type Address string

// ZeroAddress is the null account. It is never a valid recipient.
const ZeroAddress Address = ""

// ErrInvalidAddress is returned when an address fails to decode.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress decodes and validates a base58 account identifier.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLen {
		return ZeroAddress, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(raw), AddressLen)
	}
	return Address(s), nil
}

// AddressFromBytes encodes a 32-byte value as an Address.
func AddressFromBytes(raw []byte) (Address, error) {
	if len(raw) != AddressLen {
		return ZeroAddress, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(raw), AddressLen)
	}
	return Address(base58.Encode(raw)), nil
}

// IsZero reports whether a is the null account.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns the decoded 32-byte value.
func (a Address) Bytes() ([]byte, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(raw), AddressLen)
	}
	return raw, nil
}

// OnCurve reports whether the address decodes to a valid ed25519 point.
// Wallet accounts are on-curve; derived addresses are not.
func (a Address) OnCurve() bool {
	raw, err := a.Bytes()
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

func (a Address) String() string {
	return string(a)
}
