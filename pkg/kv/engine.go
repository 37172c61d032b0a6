package kv

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Voskan/kvshard/internal/dbmanager"
	"github.com/Voskan/kvshard/internal/debug"
	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/lifecycle"
	"github.com/Voskan/kvshard/internal/metrics"
	"github.com/Voskan/kvshard/internal/record"
	"github.com/Voskan/kvshard/internal/router"
	"github.com/Voskan/kvshard/internal/sharded"
	"github.com/Voskan/kvshard/internal/store"
	"github.com/Voskan/kvshard/internal/store/badgerstore"
)

// Option configures optional, cross-cutting behavior of an Engine: logging
// and metrics. The engine never logs or collects metrics on the hot path
// unless the caller opts in.
type Option func(*engineOptions)

type engineOptions struct {
	log *zap.Logger
	reg *prometheus.Registry
}

// WithLogger plugs an external zap.Logger into every layer of the engine
// (router, DB managers, store adapters, async writers). The engine never
// logs on the hot path; only slow/rare events are emitted (async batch
// failures, restore-at-startup, backup/export completion, shutdown).
func WithLogger(l *zap.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection on reg. Passing nil
// (the default, if this option is never used) disables metrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(o *engineOptions) {
		o.reg = reg
	}
}

// Engine is the top-level handle: a router over one or more named DB
// instances. The zero value is not usable; construct with New.
type Engine struct {
	r        *router.Router
	shutdown *lifecycle.Flag
}

// New constructs every configured DB instance (cache + store adapter + DB
// manager) in parallel and wires them into a Router. Opening each store is
// the slow part of startup (possible restore-from-backup, engine init); it
// is parallelized across DBs with errgroup. The first DB open failure aborts
// the whole construction and closes whatever had already opened.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := &engineOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if len(cfg.DBs) == 0 {
		return nil, fmt.Errorf("kv: at least one db must be configured: %w", kverrors.ErrConfigInvalid)
	}

	sink := metrics.New(o.reg)
	shutdown := lifecycle.New()

	managers := make([]*dbmanager.Manager, len(cfg.DBs))
	var g errgroup.Group
	for i, dbCfg := range cfg.DBs {
		i, dbCfg := i, dbCfg
		g.Go(func() error {
			mgr, err := buildManager(dbCfg, shutdown, sink, o.log)
			if err != nil {
				return fmt.Errorf("kv: opening db %q: %w", dbCfg.Name, err)
			}
			managers[i] = mgr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, m := range managers {
			if m != nil {
				_ = m.Close()
			}
		}
		return nil, err
	}

	r, err := router.New(managers, cfg.Extractor.toInternal(), shutdown, o.log)
	if err != nil {
		for _, m := range managers {
			_ = m.Close()
		}
		return nil, err
	}
	return &Engine{r: r, shutdown: shutdown}, nil
}

func buildManager(dbCfg DBConfig, shutdown *lifecycle.Flag, sink metrics.Sink, log *zap.Logger) (*dbmanager.Manager, error) {
	cacheCfg := dbCfg.Cache.toInternal()
	cache, err := sharded.New(dbCfg.Name, cacheCfg, sink, log)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	storeCfg := dbCfg.Store.toInternal()
	adapter, err := badgerstore.Open(storeCfg, log)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	st := store.New(dbCfg.Name, storeCfg, adapter, shutdown, sink, log)

	return dbmanager.New(dbCfg.toInternal(), cache, st, log), nil
}

// Get reads key, preferring the cache. The bool return reports whether the
// value was served from cache (true) or backfilled from the store (false);
// err is ErrNotFound when the key is absent from both tiers.
func (e *Engine) Get(key []byte) (value []byte, fromCache bool, err error) {
	return e.r.Get(key)
}

// GetWithDBName is Get with an explicit routing hint, bypassing regex
// extraction (extraction still applies if the hint is empty or
// override_nonempty is set — see spec.md §4.6).
func (e *Engine) GetWithDBName(dbName, key []byte) (value []byte, fromCache bool, err error) {
	return e.r.GetRecord(record.NewWithDBName(dbName, key, nil))
}

// Put writes key/value through to the routed DB's store (sync or async per
// its config), then updates the cache if configured to do so on write.
func (e *Engine) Put(key, value []byte) error {
	return e.r.Put(key, value)
}

// PutWithDBName is Put with an explicit routing hint.
func (e *Engine) PutWithDBName(dbName, key, value []byte) error {
	return e.r.PutRecord(record.NewWithDBName(dbName, key, value))
}

// Delete removes key from the routed DB's cache (best-effort) and store.
func (e *Engine) Delete(key []byte) error {
	return e.r.Delete(key)
}

// ExportLRUKeys fans out a cache key export to every DB whose name equals
// name (every DB, if name is empty). One file per matched DB is written at
// pathPrefix + "." + dbName, or at that DB's configured keys_dump_file if
// pathPrefix is empty. This returns immediately once the fan-out has been
// spawned; per-DB failures are logged, not returned (spec.md §4.6). It
// returns ErrNoDB synchronously if name names no configured DB.
func (e *Engine) ExportLRUKeys(name, pathPrefix string) error {
	return e.r.ExportLRUKeys(name, pathPrefix)
}

// Backup fans out a store backup to every DB whose name equals name (every
// DB, if name is empty). newWriter is called once per matched DB, on its own
// goroutine, to obtain that DB's backup destination. Returns immediately
// once the fan-out has been spawned; per-DB failures are logged, not
// returned. It returns ErrNoDB synchronously if name names no configured DB.
func (e *Engine) Backup(name string, newWriter func(dbName string) (io.WriteCloser, error)) error {
	return e.r.Backup(name, newWriter)
}

// PurgeOld fans out purge_old(n) to every DB whose name equals name (every
// DB, if name is empty), the same fire-and-forget way as Backup. It returns
// ErrNoDB synchronously if name names no configured DB.
func (e *Engine) PurgeOld(name string, n int) error {
	return e.r.PurgeOld(name, n)
}

// Snapshot implements debug.Snapshotter: a diagnostic view of every
// configured DB, in router order.
func (e *Engine) Snapshot() []debug.SnapshotEntry {
	snaps := e.r.Snapshot()
	out := make([]debug.SnapshotEntry, len(snaps))
	for i, s := range snaps {
		out[i] = debug.SnapshotEntry{Name: s.Name, CacheLen: s.CacheLen}
	}
	return out
}

// DebugHandler returns an http.Handler serving GET /debug/kvshard/snapshot:
// a JSON array of {name, cache_len} for every configured DB, polled by the
// kvshard-inspect CLI.
func (e *Engine) DebugHandler() http.Handler {
	return debug.Handler(e)
}

// Shutdown sets the shared monotonic shutdown flag, waits for every DB's
// async writer workers to drain their queues, and closes every store.
// Callers must stop calling Put/PutWithDBName before calling Shutdown —
// items enqueued after shutdown is observed are rejected with
// ErrQueueClosed (spec.md §4.4, §5).
func (e *Engine) Shutdown() error {
	return e.r.Shutdown()
}
