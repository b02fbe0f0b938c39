package slot

import (
	"bytes"
	"math/big"
	"testing"

	"ledgerkit/storage"
)

func TestKeyDerivationIsDeterministic(t *testing.T) {
	store := storage.NewMemKV()
	a := Root(store, []byte("svc")).Field(0x01).Sub([]byte("alice"))
	b := Root(store, []byte("svc")).Field(0x01).Sub([]byte("alice"))
	if !bytes.Equal(a.Key(), b.Key()) {
		t.Fatalf("same logical slot produced different keys")
	}
	if len(a.Key()) != KeySize {
		t.Fatalf("unexpected key size %d", len(a.Key()))
	}
}

func TestKeyDerivationAvoidsCollisions(t *testing.T) {
	store := storage.NewMemKV()
	root := Root(store, []byte("svc"))
	seen := map[string]string{}
	record := func(name string, s Slot) {
		key := string(s.Key())
		if prev, ok := seen[key]; ok {
			t.Fatalf("slots %q and %q collide", prev, name)
		}
		seen[key] = name
	}
	record("f1", root.Field(0x01))
	record("f2", root.Field(0x02))
	record("f1/ab", root.Field(0x01).Sub([]byte("ab")))
	record("f1/a", root.Field(0x01).Sub([]byte("a")))
	record("f1/a/b", root.Field(0x01).Sub([]byte("a")).Sub([]byte("b")))
	record("f2/ab", root.Field(0x02).Sub([]byte("ab")))
	// Distinct namespaces never collide even with equal fields.
	record("other/f1", Root(store, []byte("other")).Field(0x01))
}

func TestDerivationShapesNeverAlias(t *testing.T) {
	store := storage.NewMemKV()
	root := Root(store, []byte("svc"))

	// A chain of zero discriminants must not reproduce a sub-key's length
	// prefix: without shape tagging these two paths would be byte-identical.
	fields := root.Field(0x00).Field(0x00).Field(0x00).
		Field(0x06).Field(0x01).Field(0x02).Field(0x03)
	sub := root.Sub([]byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03})
	if bytes.Equal(fields.Key(), sub.Key()) {
		t.Fatalf("field chain and sub-key derive the same physical key")
	}

	// The zero discriminant itself stays usable.
	f0 := root.Field(0x00)
	if bytes.Equal(f0.Key(), root.Sub(nil).Key()) {
		t.Fatalf("zero-discriminant field aliases an empty sub-key")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	store := storage.NewMemKV()
	s := Root(store, []byte("svc")).Field(0x07)

	var missing big.Int
	ok, err := s.Read(&missing)
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if ok {
		t.Fatalf("read reported a value for an empty slot")
	}

	if err := s.Write(big.NewInt(12345)); err != nil {
		t.Fatalf("write: %v", err)
	}
	exists, err := s.Exists()
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}

	got := new(big.Int)
	ok, err = s.Read(got)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestTakeReturnsPriorValue(t *testing.T) {
	store := storage.NewMemKV()
	s := Root(store, []byte("svc")).Field(0x08)
	if err := s.Write("hello"); err != nil {
		t.Fatalf("write: %v", err)
	}
	var prior string
	ok, err := s.Take(&prior)
	if err != nil || !ok {
		t.Fatalf("take: ok=%v err=%v", ok, err)
	}
	if prior != "hello" {
		t.Fatalf("unexpected prior value %q", prior)
	}
	exists, err := s.Exists()
	if err != nil || exists {
		t.Fatalf("slot still exists after take")
	}
	ok, err = s.Take(&prior)
	if err != nil || ok {
		t.Fatalf("take on empty slot reported a value")
	}
}

func TestStoredSizeIsPure(t *testing.T) {
	store := storage.NewMemKV()
	s := Root(store, []byte("svc")).Field(0x09)
	size, err := s.StoredSize(big.NewInt(1000))
	if err != nil {
		t.Fatalf("stored size: %v", err)
	}
	if size <= KeySize {
		t.Fatalf("stored size %d does not include the value", size)
	}
	if store.Len() != 0 {
		t.Fatalf("size computation touched the store")
	}
	if err := s.Write(big.NewInt(1000)); err != nil {
		t.Fatalf("write: %v", err)
	}
	current, err := s.CurrentSize()
	if err != nil {
		t.Fatalf("current size: %v", err)
	}
	if current != size {
		t.Fatalf("current size %d != predicted %d", current, size)
	}
}
