package memstore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/record"
)

func TestMemStoreGetPutDelete(t *testing.T) {
	m := New()
	if _, err := m.Get([]byte("k")); !errors.Is(err, kverrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := m.Get([]byte("k"))
	if err != nil || string(v) != "v" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := m.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get([]byte("k")); !errors.Is(err, kverrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStoreWriteBatch(t *testing.T) {
	m := New()
	items := []record.Record{
		record.New([]byte("a"), []byte("1")),
		record.New([]byte("b"), []byte("2")),
	}
	if err := m.WriteBatch(items, true); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	for _, it := range items {
		v, err := m.Get(it.Key)
		if err != nil || !bytes.Equal(v, it.Value) {
			t.Fatalf("key %q: got %q, %v", it.Key, v, err)
		}
	}
}

func TestMemStoreBackupRestore(t *testing.T) {
	m := New()
	m.Put([]byte("a"), []byte("1"))
	m.Put([]byte("b"), []byte("2"))

	var buf bytes.Buffer
	if err := m.Backup(&buf); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	m2 := New()
	if err := m2.Restore(&buf, true); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	v, err := m2.Get([]byte("a"))
	if err != nil || string(v) != "1" {
		t.Fatalf("restored a = %q, %v", v, err)
	}
}
