package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account inside the host execution environment. The
// host authenticates the caller; this package only carries the identity.
type Address [AddressLength]byte

// ParseAddress decodes a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != AddressLength*2 {
		return addr, fmt.Errorf("types: address must be %d bytes (got %d hex chars)", AddressLength, len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("types: decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}

// BytesToAddress copies the trailing bytes of b into an Address.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return addr
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte { return a[:] }

// String renders the address as lowercase 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}
