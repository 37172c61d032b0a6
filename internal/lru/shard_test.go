package lru

import (
	"bytes"
	"strings"
	"testing"
)

func TestShardCapacityBound(t *testing.T) {
	s := New(3)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		s.Put([]byte(k), []byte{byte(i)})
		if got := s.Len(); got > 3 {
			t.Fatalf("shard size %d exceeds capacity after inserting %q", got, k)
		}
	}
}

func TestShardEvictionOrder(t *testing.T) {
	// Scenario 1 from the spec's seed suite.
	s := New(3)
	s.Put([]byte("a"), []byte("1"))
	s.Put([]byte("b"), []byte("2"))
	s.Put([]byte("c"), []byte("3"))
	if _, ok := s.Get([]byte("a")); !ok {
		t.Fatal("expected a present before eviction")
	}
	s.Put([]byte("d"), []byte("4"))

	if _, ok := s.Get([]byte("b")); ok {
		t.Fatal("expected b evicted (least recently used)")
	}
	v, ok := s.Get([]byte("a"))
	if !ok || !bytes.Equal(v, []byte("1")) {
		t.Fatalf("expected a=1 present (recently used), got %q ok=%v", v, ok)
	}
}

func TestShardGetMissDoesNotMutateOrder(t *testing.T) {
	s := New(2)
	s.Put([]byte("a"), []byte("1"))
	s.Put([]byte("b"), []byte("2"))

	if _, ok := s.Get([]byte("missing")); ok {
		t.Fatal("expected miss")
	}
	// a is still the least-recently-used; a fresh put should evict it.
	s.Put([]byte("c"), []byte("3"))
	if _, ok := s.Get([]byte("a")); ok {
		t.Fatal("expected a evicted since a miss must not refresh order")
	}
}

func TestShardDeleteIsNoopOnAbsent(t *testing.T) {
	s := New(2)
	s.Delete([]byte("nope")) // must not panic
	if s.Len() != 0 {
		t.Fatalf("expected empty shard, got %d", s.Len())
	}
}

func TestShardIsEmpty(t *testing.T) {
	s := New(1)
	if !s.IsEmpty() {
		t.Fatal("expected empty shard to report IsEmpty=true")
	}
	s.Put([]byte("k"), []byte("v"))
	if s.IsEmpty() {
		t.Fatal("expected non-empty shard to report IsEmpty=false")
	}
}

func TestShardExportKeysOrderAndCount(t *testing.T) {
	s := New(5)
	keys := []string{"k1", "k2", "k3", "k4", "k5"}
	for _, k := range keys {
		s.Put([]byte(k), []byte("v"))
	}
	var buf bytes.Buffer
	n, err := s.ExportKeys(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != int64(len(keys)) {
		t.Fatalf("expected %d keys exported, got %d", len(keys), n)
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	if len(got) != len(keys) {
		t.Fatalf("expected %d lines, got %d: %v", len(keys), len(got), got)
	}
	for i, k := range keys {
		if got[i] != k {
			t.Fatalf("export order mismatch at %d: got %q want %q", i, got[i], k)
		}
	}
}
