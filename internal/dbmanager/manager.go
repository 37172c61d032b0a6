// Package dbmanager implements the C6 DB manager: one named pair of
// (sharded cache, store) plus the read-through/write-through policy applied
// on every operation (spec.md §4.5).
package dbmanager

import (
	"io"
	"strconv"

	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/record"
	"github.com/Voskan/kvshard/internal/sharded"
	"github.com/Voskan/kvshard/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config pairs a DB manager's own enable flag with its name and the cache
// and store configs it composes (spec.md §6.1).
type Config struct {
	Enabled bool
	Name    string
	Cache   sharded.Config
	Store   store.Config
}

// Manager composes one sharded cache with one store adapter and enforces
// the coherence policy between them. A disabled Manager (Config.Enabled
// false) rejects every get, put and delete (plain and Record forms) with
// kverrors.ErrDisabled; CacheLen, ExportLRUKeys, Backup, PurgeOld and Close
// do not consult the flag. This flag is distinct from
// either the cache-level or store-level enabled flags, which gate their own
// layer only.
type Manager struct {
	name  string
	cache *sharded.Cache
	store *store.Store
	log   *zap.Logger

	cacheUpdateOnDBRead  bool
	cacheUpdateOnDBWrite bool
	enabled              bool

	// misses dedupes concurrent store reads for the same fingerprint so a
	// thundering herd of readers missing on the same cold key results in
	// one store.Get, not one per goroutine.
	misses singleflight.Group
}

// New composes cache and store into a named Manager.
func New(cfg Config, cache *sharded.Cache, st *store.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		name:                 cfg.Name,
		cache:                cache,
		store:                st,
		log:                  log,
		cacheUpdateOnDBRead:  cfg.Cache.CacheUpdateOnDBRead,
		cacheUpdateOnDBWrite: cfg.Cache.CacheUpdateOnDBWrite,
		enabled:              cfg.Enabled,
	}
}

// Name returns the manager's configured name, used by the router for
// name-based dispatch and bulk fan-out filtering.
func (m *Manager) Name() string { return m.name }

// Get returns (value, fromCache, err). A cache hit returns
// (value, true, nil) immediately; a cache miss consults the store and, on
// a store hit, best-effort populates the cache (errors are swallowed —
// spec.md §7) when cacheUpdateOnDBRead is set.
func (m *Manager) Get(key []byte) (value []byte, fromCache bool, err error) {
	return m.GetRecord(record.NewKeyOnly(key))
}

// GetRecord is the Record-carrying counterpart of Get, reusing r's carried
// fingerprint for the cache slot lookup.
func (m *Manager) GetRecord(r record.Record) (value []byte, fromCache bool, err error) {
	if !m.enabled {
		return nil, false, kverrors.ErrDisabled
	}

	if v, ok := m.cache.GetRecord(r); ok {
		return v, true, nil
	}

	sfKey := strconv.FormatUint(r.Fingerprint, 16)
	res, err, _ := m.misses.Do(sfKey, func() (any, error) {
		return m.store.Get(r.Key)
	})
	if err != nil {
		return nil, false, err
	}
	v := res.([]byte)

	if m.cacheUpdateOnDBRead {
		rr := r
		rr.Value = v
		m.cache.PutRecord(rr) // best-effort; cache.Put cannot fail
	}
	return v, false, nil
}

// Put writes through to the store first (sync or async per store config);
// store errors propagate. If cacheUpdateOnDBWrite is set, the cache is then
// updated — per spec.md §4.5 this update's errors also propagate, but
// sharded.Cache.Put never fails, so in practice Put only ever returns a
// store error.
func (m *Manager) Put(key, value []byte) error {
	return m.PutRecord(record.New(key, value))
}

// PutRecord is the Record-carrying counterpart of Put.
func (m *Manager) PutRecord(r record.Record) error {
	if !m.enabled {
		return kverrors.ErrDisabled
	}
	if err := m.store.PutRecord(r); err != nil {
		return err
	}
	if m.cacheUpdateOnDBWrite {
		m.cache.PutRecord(r)
	}
	return nil
}

// Delete best-effort removes key from the cache (errors ignored), then
// deletes from the store; store errors propagate.
func (m *Manager) Delete(key []byte) error {
	return m.DeleteRecord(record.NewKeyOnly(key))
}

// DeleteRecord is the Record-carrying counterpart of Delete.
func (m *Manager) DeleteRecord(r record.Record) error {
	if !m.enabled {
		return kverrors.ErrDisabled
	}
	m.cache.DeleteRecord(r) // best-effort, cannot fail
	if err := m.store.Delete(r.Key); err != nil {
		return err
	}
	return nil
}

// CacheLen reports the number of entries currently held in the manager's
// cache, for diagnostics (0 if the cache is disabled).
func (m *Manager) CacheLen() int {
	return m.cache.Len()
}

// ExportLRUKeys exports the manager's cache keys to path.
func (m *Manager) ExportLRUKeys(path string) (int64, error) {
	return m.cache.ExportKeys(path)
}

// Backup triggers a store backup.
func (m *Manager) Backup(w io.Writer) error {
	return m.store.Backup(w)
}

// PurgeOld reclaims stale on-disk store data.
func (m *Manager) PurgeOld(n int) error {
	return m.store.PurgeOld(n)
}

// Close drains the store's async writer (if any) and releases its resources.
func (m *Manager) Close() error {
	return m.store.Close()
}
