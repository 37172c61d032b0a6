// Package metrics abstracts Prometheus so the engine can be used with or
// without metrics collection. When the caller does not opt in (no registry
// supplied), a no-op sink is used and the hot path never pays for a metric
// update — the same shape as the teacher's metricsSink/noopMetrics split,
// generalized from per-shard cache counters to also cover per-DB store and
// async-writer stats.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the internal interface every layer (sharded cache, store adapter,
// async writer) reports through. It is never exposed outside this module;
// callers only ever see the functional option that wires a registry in.
type Sink interface {
	IncCacheHit(db string, shard int)
	IncCacheMiss(db string, shard int)
	IncCacheEviction(db string, shard int)
	SetAsyncQueueDepth(db string, depth int)
	IncAsyncBatch(db string, items int)
	IncStoreError(db, op string)
}

// Noop implements Sink with no side effects.
type Noop struct{}

func (Noop) IncCacheHit(string, int)         {}
func (Noop) IncCacheMiss(string, int)        {}
func (Noop) IncCacheEviction(string, int)    {}
func (Noop) SetAsyncQueueDepth(string, int)  {}
func (Noop) IncAsyncBatch(string, int)       {}
func (Noop) IncStoreError(string, string)    {}

// Prom implements Sink backed by a *prometheus.Registry.
type Prom struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	queueDepth  *prometheus.GaugeVec
	asyncBatch  *prometheus.CounterVec
	asyncItems  *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
}

// NewProm registers the engine's metrics on reg and returns a Sink backed by
// them. reg must not be nil.
func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "cache_hits_total", Help: "Cache hits.",
		}, []string{"db", "shard"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "cache_misses_total", Help: "Cache misses.",
		}, []string{"db", "shard"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "cache_evictions_total", Help: "Cache evictions.",
		}, []string{"db", "shard"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kvshard", Name: "async_queue_depth", Help: "Pending items in the async write queue.",
		}, []string{"db"}),
		asyncBatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "async_batches_total", Help: "Async writer batches committed.",
		}, []string{"db"}),
		asyncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "async_items_total", Help: "Items committed by the async writer.",
		}, []string{"db"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvshard", Name: "store_errors_total", Help: "Store adapter errors.",
		}, []string{"db", "op"}),
	}
	reg.MustRegister(p.hits, p.misses, p.evictions, p.queueDepth, p.asyncBatch, p.asyncItems, p.storeErrors)
	return p
}

func (p *Prom) IncCacheHit(db string, shard int) {
	p.hits.WithLabelValues(db, shardLabel(shard)).Inc()
}
func (p *Prom) IncCacheMiss(db string, shard int) {
	p.misses.WithLabelValues(db, shardLabel(shard)).Inc()
}
func (p *Prom) IncCacheEviction(db string, shard int) {
	p.evictions.WithLabelValues(db, shardLabel(shard)).Inc()
}
func (p *Prom) SetAsyncQueueDepth(db string, depth int) {
	p.queueDepth.WithLabelValues(db).Set(float64(depth))
}
func (p *Prom) IncAsyncBatch(db string, items int) {
	p.asyncBatch.WithLabelValues(db).Inc()
	p.asyncItems.WithLabelValues(db).Add(float64(items))
}
func (p *Prom) IncStoreError(db, op string) {
	p.storeErrors.WithLabelValues(db, op).Inc()
}

// New decides which Sink implementation to use. reg may be nil, in which
// case metrics are disabled.
func New(reg *prometheus.Registry) Sink {
	if reg == nil {
		return Noop{}
	}
	return NewProm(reg)
}

func shardLabel(shard int) string {
	return strconv.Itoa(shard)
}
