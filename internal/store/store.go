package store

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/lifecycle"
	"github.com/Voskan/kvshard/internal/metrics"
	"github.com/Voskan/kvshard/internal/record"
	"go.uber.org/zap"
)

// Store layers the C4 async write pipeline on top of a raw Adapter: it
// decides, per config, whether a Put is committed synchronously on the
// caller's goroutine or handed to a bounded queue drained by a worker pool
// that coalesces pending writes into batches.
type Store struct {
	dbName   string
	cfg      Config
	adapter  Adapter
	shutdown *lifecycle.Flag
	sink     metrics.Sink
	log      *zap.Logger

	queue chan record.Record
	wg    sync.WaitGroup
}

// New wraps adapter with the async pipeline described by cfg. shutdown is
// the shared monotonic flag the caller will eventually set; workers are
// spawned immediately if cfg.Enabled && cfg.AsyncWrite.
func New(dbName string, cfg Config, adapter Adapter, shutdown *lifecycle.Flag, sink metrics.Sink, log *zap.Logger) *Store {
	if sink == nil {
		sink = metrics.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		dbName:   dbName,
		cfg:      cfg,
		adapter:  adapter,
		shutdown: shutdown,
		sink:     sink,
		log:      log,
	}

	if cfg.Enabled && cfg.AsyncWrite {
		s.queue = make(chan record.Record, cfg.AsyncWriteQueueLength)
		for i := 0; i < cfg.NumAsyncWriterThreads; i++ {
			s.wg.Add(1)
			go s.workerLoop()
		}
	}
	return s
}

// Enabled reports whether the underlying store is active.
func (s *Store) Enabled() bool { return s.cfg.Enabled }

// Get reads key synchronously from the adapter.
func (s *Store) Get(key []byte) ([]byte, error) {
	if !s.cfg.Enabled {
		return nil, kverrors.ErrDisabled
	}
	v, err := s.adapter.Get(key)
	if err != nil && err != kverrors.ErrNotFound {
		s.sink.IncStoreError(s.dbName, "get")
	}
	return v, err
}

// Put writes key/value per cfg.AsyncWrite: synchronously (returning the
// store's error verbatim) or by enqueueing onto the async pipeline
// (returning only enqueue failures).
func (s *Store) Put(key, value []byte) error {
	if !s.cfg.Enabled {
		return kverrors.ErrDisabled
	}
	if s.cfg.AsyncWrite {
		return s.PutAsync(record.New(key, value))
	}
	if err := s.adapter.Put(key, value); err != nil {
		s.sink.IncStoreError(s.dbName, "put")
		return err
	}
	return nil
}

// PutRecord is the Record-carrying counterpart of Put, used by callers that
// already computed the fingerprint and don't want Put to build a fresh one.
func (s *Store) PutRecord(r record.Record) error {
	if !s.cfg.Enabled {
		return kverrors.ErrDisabled
	}
	if s.cfg.AsyncWrite {
		return s.PutAsync(r)
	}
	if err := s.adapter.Put(r.Key, r.Value); err != nil {
		s.sink.IncStoreError(s.dbName, "put")
		return err
	}
	return nil
}

// PutAsync enqueues r for a writer worker to commit. The default overflow
// policy is to block the caller when the queue is full (spec.md §4.4,
// §9) — a durability/back-pressure tradeoff, not a silent drop. With a queue
// configured, the only error this can return is ErrQueueClosed, raised when
// shutdown has already been observed; callers must quiesce producers before
// signaling shutdown. Without a queue, the write goes straight to the adapter
// and its error is returned verbatim.
func (s *Store) PutAsync(r record.Record) error {
	if s.queue == nil {
		// Async writing isn't configured; fall back to the synchronous path
		// so callers written against PutAsync still work when async_write=false.
		if err := s.adapter.Put(r.Key, r.Value); err != nil {
			s.sink.IncStoreError(s.dbName, "put")
			return err
		}
		return nil
	}
	if s.shutdown.IsShutdown() {
		return kverrors.ErrQueueClosed
	}
	s.queue <- r
	s.sink.SetAsyncQueueDepth(s.dbName, len(s.queue))
	return nil
}

// Delete removes key synchronously; errors propagate to the caller.
func (s *Store) Delete(key []byte) error {
	if !s.cfg.Enabled {
		return kverrors.ErrDisabled
	}
	if err := s.adapter.Delete(key); err != nil {
		s.sink.IncStoreError(s.dbName, "delete")
		return err
	}
	return nil
}

// WriteBatch commits items atomically, synchronously, honoring cfg.DisableWAL
// unless the caller overrides withWAL explicitly via Adapter.WriteBatch.
func (s *Store) WriteBatch(items []record.Record) error {
	if !s.cfg.Enabled {
		return kverrors.ErrDisabled
	}
	if err := s.adapter.WriteBatch(items, !s.cfg.DisableWAL); err != nil {
		s.sink.IncStoreError(s.dbName, "write_batch")
		return err
	}
	return nil
}

// Backup streams a full snapshot via the adapter, gated on BackupEnabled.
func (s *Store) Backup(w io.Writer) error {
	if !s.cfg.BackupEnabled {
		return fmt.Errorf("store: backup is not enabled for db %s", s.dbName)
	}
	if err := s.adapter.Backup(w); err != nil {
		s.sink.IncStoreError(s.dbName, "backup")
		return err
	}
	return nil
}

// Restore loads a snapshot via the adapter.
func (s *Store) Restore(r io.Reader, keepLogFiles bool) error {
	if err := s.adapter.Restore(r, keepLogFiles); err != nil {
		s.sink.IncStoreError(s.dbName, "restore")
		return err
	}
	return nil
}

// PurgeOld reclaims up to n generations of stale on-disk data.
func (s *Store) PurgeOld(n int) error {
	if err := s.adapter.PurgeOld(n); err != nil {
		s.sink.IncStoreError(s.dbName, "purge_old")
		return err
	}
	return nil
}

// Close waits for any spawned writer workers to drain their in-flight work
// (the caller is expected to have already signaled shutdown) and then closes
// the underlying adapter.
func (s *Store) Close() error {
	s.wg.Wait()
	return s.adapter.Close()
}

// workerLoop implements spec.md §4.4's drain/batch/commit cycle. It checks
// the shutdown flag only when its local drain came back empty, guaranteeing
// in-flight enqueued writes are attempted before the worker exits.
func (s *Store) workerLoop() {
	defer s.wg.Done()

	sleep := time.Duration(s.cfg.AsyncWriterThreadsSleepMS) * time.Millisecond
	for {
		batch := s.drainNonBlocking()

		if len(batch) == 0 {
			if s.shutdown.IsShutdown() {
				s.log.Info("async writer stopped", zap.String("db", s.dbName))
				return
			}
			time.Sleep(sleep)
			continue
		}

		s.sink.SetAsyncQueueDepth(s.dbName, len(s.queue))

		if len(batch) < s.cfg.MinCountForBatchWrite {
			for _, r := range batch {
				if err := s.adapter.Put(r.Key, r.Value); err != nil {
					s.sink.IncStoreError(s.dbName, "async_put")
					s.log.Warn("async write failed",
						zap.String("db", s.dbName), zap.Error(err))
				}
			}
			continue
		}

		if err := s.adapter.WriteBatch(batch, !s.cfg.DisableWAL); err != nil {
			s.sink.IncStoreError(s.dbName, "async_write_batch")
			s.log.Warn("async batch write failed",
				zap.String("db", s.dbName), zap.Int("items", len(batch)), zap.Error(err))
			continue
		}
		s.sink.IncAsyncBatch(s.dbName, len(batch))
	}
}

func (s *Store) drainNonBlocking() []record.Record {
	var batch []record.Record
	for {
		select {
		case r := <-s.queue:
			batch = append(batch, r)
		default:
			return batch
		}
	}
}
