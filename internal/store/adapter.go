// Package store implements the C5 store adapter contract (spec.md §6.2) and
// the C4 async write pipeline (spec.md §4.4) layered on top of it.
package store

import (
	"io"

	"github.com/Voskan/kvshard/internal/record"
)

// Adapter is the thin, always-synchronous contract over an embedded
// log-structured KV engine (spec.md §6.2). It knows nothing about the
// async/sync decision — that policy lives one layer up, in Store.
type Adapter interface {
	// Get returns the value for key, or kverrors.ErrNotFound if absent.
	Get(key []byte) ([]byte, error)
	// Put durably writes key/value.
	Put(key, value []byte) error
	// Delete removes key; absence is not an error.
	Delete(key []byte) error
	// WriteBatch commits items as one atomic group. withWAL selects the
	// durable (WAL) commit path versus the faster WAL-bypass path.
	WriteBatch(items []record.Record, withWAL bool) error
	// Backup streams a full snapshot of the store to w.
	Backup(w io.Writer) error
	// Restore loads a snapshot previously produced by Backup. keepLogFiles
	// is passed through for engines that can preserve existing log files at
	// the target path; the Badger and in-memory adapters ignore it.
	Restore(r io.Reader, keepLogFiles bool) error
	// PurgeOld reclaims at most n generations of stale on-disk data (e.g.
	// old value-log files / compacted SSTs), engine-specific in effect.
	PurgeOld(n int) error
	// Close releases all resources held by the adapter.
	Close() error
}

// Config carries the store-level knobs named in spec.md §6.1, plus the
// engine-specific tuning SPEC_FULL.md §10 forwards onto Badger where a
// reasonable mapping exists.
type Config struct {
	Enabled  bool
	DBPath   string
	WALDir   string // empty => defaults to DBPath

	BackupPath    string
	BackupEnabled bool

	CreateIfMissing              bool
	RestoreFromBackupAtStartup   bool
	KeepLogFileWhileRestore      bool

	AsyncWrite                  bool
	NumAsyncWriterThreads       int
	AsyncWriterThreadsSleepMS   int64
	AsyncWriteQueueLength       int
	MinCountForBatchWrite       int
	DisableWAL                  bool

	BloomFilter bool

	// Engine-specific tuning, forwarded unchanged onto Badger's Options
	// where a reasonable analogue exists (SPEC_FULL.md §10).
	BlockSizeBytes     int64
	ValueLogFileSizeMB  int64
	NumCompactors      int
	BlockCacheSizeMB   int64
	CompressionEnabled bool
}

// DefaultConfig mirrors the reference implementation's defaults, renamed
// away from its original paths.
func DefaultConfig() Config {
	return Config{
		Enabled:                    true,
		DBPath:                     "/tmp/kvshard_db",
		WALDir:                     "",
		BackupPath:                 "/tmp/kvshard_db_backup",
		BackupEnabled:              true,
		CreateIfMissing:            true,
		RestoreFromBackupAtStartup: true,
		KeepLogFileWhileRestore:    true,
		AsyncWrite:                 true,
		NumAsyncWriterThreads:      1,
		AsyncWriterThreadsSleepMS:  250,
		AsyncWriteQueueLength:      10000,
		MinCountForBatchWrite:      100,
		DisableWAL:                 false,
		BloomFilter:                false,
		BlockSizeBytes:             32768,
		ValueLogFileSizeMB:         256,
		NumCompactors:              2,
		BlockCacheSizeMB:           256,
		CompressionEnabled:         false,
	}
}

// WALDirOrDefault returns cfg.WALDir, falling back to cfg.DBPath when empty
// (spec.md §6.1: "wal_dir (empty → default to db_path)").
func (cfg Config) WALDirOrDefault() string {
	if cfg.WALDir == "" {
		return cfg.DBPath
	}
	return cfg.WALDir
}
