// Package router implements the C7 top-level engine: a named list of DB
// managers plus the name/regex/hash dispatch described in spec.md §4.6, and
// the fire-and-forget bulk fan-out operations (export, backup, purge) built
// on top of it.
package router

import (
	"fmt"
	"io"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/Voskan/kvshard/internal/dbmanager"
	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/lifecycle"
	"github.com/Voskan/kvshard/internal/record"
)

// RegexMapping is one (pattern, target db name) rule. Rules are matched in
// the order they appear in Config.Extractor.Mappings; first match wins.
type RegexMapping struct {
	Pattern   string
	NewDBName string
}

// Extractor mirrors spec.md §6.1's DbNameExtractor: regex-based rewriting of
// a request's routing db-name, applied before name/hash dispatch.
type Extractor struct {
	Enabled          bool
	OverrideNonempty bool
	Mappings         []RegexMapping
}

// Config is the router's full construction config: a named list of DB
// manager configs plus the extractor rules applied to every request.
type Config struct {
	DBs       []dbmanager.Config
	Extractor Extractor
}

type compiledRule struct {
	re        *regexp.Regexp
	newDBName string
}

// Router holds the ordered list of DB managers and the compiled extractor
// rules, and dispatches every request to exactly one manager.
type Router struct {
	managers []*dbmanager.Manager
	byName   map[string]*dbmanager.Manager
	rules    []compiledRule
	extract  Extractor

	shutdown *lifecycle.Flag
	log      *zap.Logger
}

// New compiles cfg's extractor rules and wires managers (already constructed
// by the caller, one per cfg.DBs entry, in the same order) into a Router.
// shutdown is the flag shared with every manager's store; it is not set by
// New — callers signal it via Shutdown.
func New(managers []*dbmanager.Manager, extractor Extractor, shutdown *lifecycle.Flag, log *zap.Logger) (*Router, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(managers) == 0 {
		return nil, fmt.Errorf("router: at least one db manager is required: %w", kverrors.ErrConfigInvalid)
	}

	rules := make([]compiledRule, 0, len(extractor.Mappings))
	for _, m := range extractor.Mappings {
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("router: compiling regex %q: %w", m.Pattern, err)
		}
		rules = append(rules, compiledRule{re: re, newDBName: m.NewDBName})
	}

	byName := make(map[string]*dbmanager.Manager, len(managers))
	for _, m := range managers {
		byName[m.Name()] = m
	}

	return &Router{
		managers: managers,
		byName:   byName,
		rules:    rules,
		extract:  extractor,
		shutdown: shutdown,
		log:      log,
	}, nil
}

// resolve applies spec.md §4.6's shard-selection algorithm and returns the
// manager a request should be routed to. The post-extraction db_name is what
// the name scan looks up — this is the fix for the reference
// implementation's documented bug (spec.md §9), where the name scan used the
// pre-extraction db_name even after a regex rewrite. When that name is empty
// or matches no manager, the request falls back to its fingerprint modulo
// the number of managers; the name plays no part in that hash.
func (r *Router) resolve(rec record.Record) *dbmanager.Manager {
	dbName := rec.DBName

	if r.extract.Enabled && (len(dbName) == 0 || r.extract.OverrideNonempty) {
		for _, rule := range r.rules {
			if rule.re.Match(rec.Key) {
				dbName = []byte(rule.newDBName)
				break
			}
		}
	}

	if len(dbName) > 0 {
		if m, ok := r.byName[string(dbName)]; ok {
			return m
		}
	}

	idx := int(rec.Fingerprint % uint64(len(r.managers)))
	return r.managers[idx]
}

// Get routes key to its manager and reads through cache/store.
func (r *Router) Get(key []byte) (value []byte, fromCache bool, err error) {
	return r.GetRecord(record.NewKeyOnly(key))
}

// GetRecord is the Record-carrying counterpart of Get, allowing callers to
// supply an explicit db-name routing hint.
func (r *Router) GetRecord(rec record.Record) (value []byte, fromCache bool, err error) {
	return r.resolve(rec).GetRecord(rec)
}

// Put routes key/value to its manager and writes through.
func (r *Router) Put(key, value []byte) error {
	return r.PutRecord(record.New(key, value))
}

// PutRecord is the Record-carrying counterpart of Put.
func (r *Router) PutRecord(rec record.Record) error {
	return r.resolve(rec).PutRecord(rec)
}

// Delete routes key to its manager and deletes from cache and store.
func (r *Router) Delete(key []byte) error {
	return r.DeleteRecord(record.NewKeyOnly(key))
}

// DeleteRecord is the Record-carrying counterpart of Delete.
func (r *Router) DeleteRecord(rec record.Record) error {
	return r.resolve(rec).DeleteRecord(rec)
}

// matching returns the managers whose name equals name, or all managers if
// name is empty.
func (r *Router) matching(name string) []*dbmanager.Manager {
	if name == "" {
		return r.managers
	}
	if m, ok := r.byName[name]; ok {
		return []*dbmanager.Manager{m}
	}
	return nil
}

// ExportLRUKeys fans out to every manager matching name (all, if empty),
// each on its own goroutine. It returns immediately after spawning;
// per-manager failures are logged, never returned — this mirrors
// spec.md §4.6's "deliberate... both operations are slow and blocking"
// fire-and-forget design. An empty pathPrefix tells each manager to fall
// back to its own configured keys_dump_file. ErrNoDB is returned
// synchronously, before anything is spawned, if name names no configured DB.
func (r *Router) ExportLRUKeys(name, pathPrefix string) error {
	targets := r.matching(name)
	if name != "" && len(targets) == 0 {
		return kverrors.ErrNoDB
	}
	for _, m := range targets {
		m := m
		go func() {
			path := ""
			if pathPrefix != "" {
				path = pathPrefix + "." + m.Name()
			}
			n, err := m.ExportLRUKeys(path)
			if err != nil {
				r.log.Warn("export_lru_keys failed", zap.String("db", m.Name()), zap.Error(err))
				return
			}
			r.log.Info("export_lru_keys completed", zap.String("db", m.Name()), zap.Int64("keys", n))
		}()
	}
	return nil
}

// Backup fans out a store backup to every manager matching name (all, if
// empty). newWriter is invoked once per matched manager, on its own
// goroutine, to obtain the destination for that manager's snapshot
// (typically opening a per-DB file) — failures from newWriter itself are
// logged exactly like a backup failure. ErrNoDB is returned synchronously if
// name names no configured DB.
func (r *Router) Backup(name string, newWriter func(dbName string) (io.WriteCloser, error)) error {
	targets := r.matching(name)
	if name != "" && len(targets) == 0 {
		return kverrors.ErrNoDB
	}
	for _, m := range targets {
		m := m
		go func() {
			w, err := newWriter(m.Name())
			if err != nil {
				r.log.Warn("backup: opening destination failed", zap.String("db", m.Name()), zap.Error(err))
				return
			}
			defer w.Close()
			if err := m.Backup(w); err != nil {
				r.log.Warn("backup failed", zap.String("db", m.Name()), zap.Error(err))
				return
			}
			r.log.Info("backup completed", zap.String("db", m.Name()))
		}()
	}
	return nil
}

// PurgeOld fans out purge_old(n) to every manager matching name (all, if
// empty), the same fire-and-forget way as ExportLRUKeys and Backup. ErrNoDB
// is returned synchronously if name names no configured DB.
func (r *Router) PurgeOld(name string, n int) error {
	targets := r.matching(name)
	if name != "" && len(targets) == 0 {
		return kverrors.ErrNoDB
	}
	for _, m := range targets {
		m := m
		go func() {
			if err := m.PurgeOld(n); err != nil {
				r.log.Warn("purge_old failed", zap.String("db", m.Name()), zap.Error(err))
				return
			}
			r.log.Info("purge_old completed", zap.String("db", m.Name()), zap.Int("n", n))
		}()
	}
	return nil
}

// DBSnapshot is one DB manager's diagnostic state, for the debug snapshot
// endpoint.
type DBSnapshot struct {
	Name      string `json:"name"`
	CacheLen  int    `json:"cache_len"`
}

// Snapshot returns a diagnostic view of every configured DB manager, in
// router order.
func (r *Router) Snapshot() []DBSnapshot {
	out := make([]DBSnapshot, len(r.managers))
	for i, m := range r.managers {
		out[i] = DBSnapshot{Name: m.Name(), CacheLen: m.CacheLen()}
	}
	return out
}

// Shutdown sets the shared lifecycle flag (causing every manager's
// async-writer workers to drain and exit) and then closes every manager in
// parallel, returning the first error encountered, if any.
func (r *Router) Shutdown() error {
	r.shutdown.Shutdown()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstErr error
	)
	for _, m := range r.managers {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Close(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}
