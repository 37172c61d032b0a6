// Package memstore implements store.Adapter over a thread-safe in-memory
// map, as sanctioned by spec.md §6.2 ("for testing, a thread-safe in-memory
// map suffices"). It is used by the engine's own unit tests and is suitable
// for any caller that wants the store contract without touching disk.
package memstore

import (
	"encoding/gob"
	"fmt"
	"io"
	"sync"

	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/record"
)

// MemStore is a store.Adapter backed by a mutex-guarded map.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New constructs an empty MemStore.
func New() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, kverrors.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// WriteBatch applies items atomically with respect to readers. withWAL has
// no effect here: durability isn't modeled in-memory.
func (m *MemStore) WriteBatch(items []record.Record, withWAL bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		v := make([]byte, len(it.Value))
		copy(v, it.Value)
		m.data[string(it.Key)] = v
	}
	return nil
}

// Backup gob-encodes the full key/value map to w.
func (m *MemStore) Backup(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return gob.NewEncoder(w).Encode(m.data)
}

// Restore replaces the map's contents with a snapshot previously produced
// by Backup. keepLogFiles is accepted for interface parity and ignored.
func (m *MemStore) Restore(r io.Reader, keepLogFiles bool) error {
	var data map[string][]byte
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("memstore: restore: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// PurgeOld is a no-op: there is no stale on-disk data to reclaim.
func (m *MemStore) PurgeOld(n int) error { return nil }

// Close is a no-op.
func (m *MemStore) Close() error { return nil }

// Snapshot returns a defensive copy of the current key/value set, useful in
// tests asserting on store contents.
func (m *MemStore) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
