// Package kv is the public facade over the sharded, cache-fronted, durable
// key-value engine: callers construct an Engine from a Config and a handful
// of functional options, then call Get/Put/Delete/Backup/ExportLRUKeys.
package kv

import (
	"github.com/Voskan/kvshard/internal/dbmanager"
	"github.com/Voskan/kvshard/internal/router"
	"github.com/Voskan/kvshard/internal/sharded"
	"github.com/Voskan/kvshard/internal/store"
)

// CacheConfig mirrors the cache-level knobs of spec.md §6.1.
type CacheConfig struct {
	Enabled              bool
	CacheCapacity        int
	NumShards            int
	CacheUpdateOnDBRead  bool
	CacheUpdateOnDBWrite bool
	KeysDumpEnabled      bool
	KeysDumpFile         string
}

// DefaultCacheConfig returns the reference implementation's cache defaults.
func DefaultCacheConfig() CacheConfig {
	d := sharded.DefaultConfig()
	return CacheConfig{
		Enabled:              d.Enabled,
		CacheCapacity:        d.CacheCapacity,
		NumShards:            d.NumShards,
		CacheUpdateOnDBRead:  d.CacheUpdateOnDBRead,
		CacheUpdateOnDBWrite: d.CacheUpdateOnDBWrite,
		KeysDumpEnabled:      d.KeysDumpEnabled,
		KeysDumpFile:         d.KeysDumpFile,
	}
}

func (c CacheConfig) toInternal() sharded.Config {
	return sharded.Config{
		Enabled:              c.Enabled,
		CacheCapacity:        c.CacheCapacity,
		NumShards:            c.NumShards,
		CacheUpdateOnDBRead:  c.CacheUpdateOnDBRead,
		CacheUpdateOnDBWrite: c.CacheUpdateOnDBWrite,
		KeysDumpEnabled:      c.KeysDumpEnabled,
		KeysDumpFile:         c.KeysDumpFile,
	}
}

// StoreConfig mirrors the store-level knobs of spec.md §6.1, including the
// engine-specific tuning SPEC_FULL.md §10 forwards onto Badger.
type StoreConfig struct {
	Enabled bool
	DBPath  string
	WALDir  string

	BackupPath    string
	BackupEnabled bool

	CreateIfMissing            bool
	RestoreFromBackupAtStartup bool
	KeepLogFileWhileRestore    bool

	AsyncWrite                bool
	NumAsyncWriterThreads     int
	AsyncWriterThreadsSleepMS int64
	AsyncWriteQueueLength     int
	MinCountForBatchWrite     int
	DisableWAL                bool

	BloomFilter bool

	BlockSizeBytes     int64
	ValueLogFileSizeMB int64
	NumCompactors      int
	BlockCacheSizeMB   int64
	CompressionEnabled bool
}

// DefaultStoreConfig returns the reference implementation's store defaults,
// with paths renamed away from the reference project's own name.
func DefaultStoreConfig() StoreConfig {
	d := store.DefaultConfig()
	return StoreConfig{
		Enabled:                    d.Enabled,
		DBPath:                     d.DBPath,
		WALDir:                     d.WALDir,
		BackupPath:                 d.BackupPath,
		BackupEnabled:              d.BackupEnabled,
		CreateIfMissing:            d.CreateIfMissing,
		RestoreFromBackupAtStartup: d.RestoreFromBackupAtStartup,
		KeepLogFileWhileRestore:    d.KeepLogFileWhileRestore,
		AsyncWrite:                 d.AsyncWrite,
		NumAsyncWriterThreads:      d.NumAsyncWriterThreads,
		AsyncWriterThreadsSleepMS:  d.AsyncWriterThreadsSleepMS,
		AsyncWriteQueueLength:      d.AsyncWriteQueueLength,
		MinCountForBatchWrite:      d.MinCountForBatchWrite,
		DisableWAL:                 d.DisableWAL,
		BloomFilter:                d.BloomFilter,
		BlockSizeBytes:             d.BlockSizeBytes,
		ValueLogFileSizeMB:         d.ValueLogFileSizeMB,
		NumCompactors:              d.NumCompactors,
		BlockCacheSizeMB:           d.BlockCacheSizeMB,
		CompressionEnabled:         d.CompressionEnabled,
	}
}

func (c StoreConfig) toInternal() store.Config {
	return store.Config{
		Enabled:                    c.Enabled,
		DBPath:                     c.DBPath,
		WALDir:                     c.WALDir,
		BackupPath:                 c.BackupPath,
		BackupEnabled:              c.BackupEnabled,
		CreateIfMissing:            c.CreateIfMissing,
		RestoreFromBackupAtStartup: c.RestoreFromBackupAtStartup,
		KeepLogFileWhileRestore:    c.KeepLogFileWhileRestore,
		AsyncWrite:                 c.AsyncWrite,
		NumAsyncWriterThreads:      c.NumAsyncWriterThreads,
		AsyncWriterThreadsSleepMS:  c.AsyncWriterThreadsSleepMS,
		AsyncWriteQueueLength:      c.AsyncWriteQueueLength,
		MinCountForBatchWrite:      c.MinCountForBatchWrite,
		DisableWAL:                 c.DisableWAL,
		BloomFilter:                c.BloomFilter,
		BlockSizeBytes:             c.BlockSizeBytes,
		ValueLogFileSizeMB:         c.ValueLogFileSizeMB,
		NumCompactors:              c.NumCompactors,
		BlockCacheSizeMB:           c.BlockCacheSizeMB,
		CompressionEnabled:         c.CompressionEnabled,
	}
}

// DBConfig names one DB instance and its cache/store configs. Enabled here
// gates the whole instance independently of Cache.Enabled and Store.Enabled
// (SPEC_FULL.md §10).
type DBConfig struct {
	Name    string
	Enabled bool
	Cache   CacheConfig
	Store   StoreConfig
}

func (c DBConfig) toInternal() dbmanager.Config {
	return dbmanager.Config{
		Enabled: c.Enabled,
		Name:    c.Name,
		Cache:   c.Cache.toInternal(),
		Store:   c.Store.toInternal(),
	}
}

// RegexMapping is one db-name rewrite rule: requests whose key matches
// Pattern are routed to NewDBName.
type RegexMapping struct {
	Pattern   string
	NewDBName string
}

// ExtractorConfig mirrors spec.md §6.1's DbNameExtractor.
type ExtractorConfig struct {
	Enabled          bool
	OverrideNonempty bool
	Mappings         []RegexMapping
}

func (c ExtractorConfig) toInternal() router.Extractor {
	mappings := make([]router.RegexMapping, len(c.Mappings))
	for i, m := range c.Mappings {
		mappings[i] = router.RegexMapping{Pattern: m.Pattern, NewDBName: m.NewDBName}
	}
	return router.Extractor{
		Enabled:          c.Enabled,
		OverrideNonempty: c.OverrideNonempty,
		Mappings:         mappings,
	}
}

// Config is the engine's full construction config: a named list of DB
// configs plus the extractor rules applied to every request (spec.md §6.1).
type Config struct {
	DBs       []DBConfig
	Extractor ExtractorConfig
}

// SingleDB is a convenience constructor for a Config with exactly one
// enabled DB, named name, and extraction disabled — the common case for callers that
// don't need multi-database routing.
func SingleDB(name string, cache CacheConfig, st StoreConfig) Config {
	return Config{
		DBs: []DBConfig{{Enabled: true, Name: name, Cache: cache, Store: st}},
	}
}
