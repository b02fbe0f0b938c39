// Package slot provides typed accessors bound to deterministic physical
// storage keys. A slot is addressed by a service-wide root namespace, a field
// discriminant and an optional sub-key; the same logical field always resolves
// to the same physical key, so persisted state survives code upgrades as long
// as discriminants are unchanged.
package slot

import (
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"ledgerkit/storage"
)

// Slot binds one logical storage location to a KV store. The zero value is
// not usable; derive slots from Root.
type Slot struct {
	store storage.KV
	path  []byte
}

// Path extensions are tagged so the two derivation shapes can never collide:
// a Field appends tagField plus the discriminant, a Sub appends tagSub plus a
// length-prefixed key. Every extension is decodable from its tag, which makes
// the full path prefix-free and the derivation injective.
const (
	tagField = 0x00
	tagSub   = 0x01
)

// Root creates the root slot for a service namespace. Two independently
// defined features sharing the same namespace must not choose colliding field
// discriminants; the discriminant and sub-key layers below the namespace are
// collision-free by construction.
func Root(store storage.KV, namespace []byte) Slot {
	path := make([]byte, 0, len(namespace))
	path = append(path, namespace...)
	return Slot{store: store, path: path}
}

// Field derives the slot for a field discriminant under this slot.
func (s Slot) Field(discriminant byte) Slot {
	path := make([]byte, 0, len(s.path)+2)
	path = append(path, s.path...)
	path = append(path, tagField, discriminant)
	return Slot{store: s.store, path: path}
}

// Sub derives the slot for a sub-key (an account or token identifier) under
// this slot. Sub-keys are length-prefixed so distinct key sequences can never
// produce the same derivation path.
func (s Slot) Sub(subkey []byte) Slot {
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(subkey)))
	path := make([]byte, 0, len(s.path)+1+8+len(subkey))
	path = append(path, s.path...)
	path = append(path, tagSub)
	path = append(path, l[:]...)
	path = append(path, subkey...)
	return Slot{store: s.store, path: path}
}

// Key returns the physical storage key for this slot. The derivation is a
// pure function of the slot path and never touches the store.
func (s Slot) Key() []byte {
	return ethcrypto.Keccak256(s.path)
}

// KeySize is the length in bytes of every physical key.
const KeySize = 32

// Read decodes the stored value into out. It reports whether a value was
// present; out is left untouched when it was not.
func (s Slot) Read(out interface{}) (bool, error) {
	data, err := s.store.Get(s.Key())
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("slot: decode value: %w", err)
	}
	return true, nil
}

// Write encodes v and stores it under the slot key. The write is atomic with
// respect to the single physical key.
func (s Slot) Write(v interface{}) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("slot: encode value: %w", err)
	}
	return s.store.Put(s.Key(), encoded)
}

// Exists reports whether the slot currently holds a value.
func (s Slot) Exists() (bool, error) {
	return s.store.Has(s.Key())
}

// Remove deletes the stored value, if any.
func (s Slot) Remove() error {
	return s.store.Delete(s.Key())
}

// Take removes the stored value and decodes the prior value into out. It
// reports whether a value was present.
func (s Slot) Take(out interface{}) (bool, error) {
	ok, err := s.Read(out)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.store.Delete(s.Key())
}

// StoredSize returns the number of bytes the slot occupies when holding v:
// the physical key plus the encoded value. Storage accounting charges use
// this before the corresponding write is committed.
func (s Slot) StoredSize(v interface{}) (uint64, error) {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("slot: encode value: %w", err)
	}
	return KeySize + uint64(len(encoded)), nil
}

// CurrentSize returns the number of bytes the slot occupies with its stored
// value, or zero when empty.
func (s Slot) CurrentSize() (uint64, error) {
	data, err := s.store.Get(s.Key())
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return KeySize + uint64(len(data)), nil
}
