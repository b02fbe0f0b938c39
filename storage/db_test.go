package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	key := []byte("k1")

	if _, err := kv.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key: %v", err)
	}
	if has, err := kv.Has(key); err != nil || has {
		t.Fatalf("has on missing key = %v err=%v", has, err)
	}
	if err := kv.Put(key, []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := kv.Get(key)
	if err != nil || string(got) != "v1" {
		t.Fatalf("get = %q err=%v", got, err)
	}
	if has, err := kv.Has(key); err != nil || !has {
		t.Fatalf("has = %v err=%v", has, err)
	}
	if err := kv.Put(key, []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = kv.Get(key)
	if err != nil || string(got) != "v2" {
		t.Fatalf("get after overwrite = %q err=%v", got, err)
	}
	if err := kv.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key: %v", err)
	}
	// Deleting an absent key is not an error.
	if err := kv.Delete(key); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestMemKV(t *testing.T) {
	exerciseKV(t, NewMemKV())
}

func TestMemKVCopiesValues(t *testing.T) {
	kv := NewMemKV()
	value := []byte("original")
	if err := kv.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'
	got, err := kv.Get([]byte("k"))
	if err != nil || string(got) != "original" {
		t.Fatalf("stored value aliased caller slice: %q err=%v", got, err)
	}
	got[0] = 'Y'
	again, err := kv.Get([]byte("k"))
	if err != nil || string(again) != "original" {
		t.Fatalf("returned value aliased store: %q err=%v", again, err)
	}
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	exerciseKV(t, db)
}
