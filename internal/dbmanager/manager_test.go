package dbmanager

import (
	"testing"

	"github.com/Voskan/kvshard/internal/lifecycle"
	"github.com/Voskan/kvshard/internal/metrics"
	"github.com/Voskan/kvshard/internal/sharded"
	"github.com/Voskan/kvshard/internal/store"
	"github.com/Voskan/kvshard/internal/store/memstore"
)

func newTestManager(t *testing.T, cacheEnabled, cacheUpdateOnRead, cacheUpdateOnWrite bool) (*Manager, *memstore.MemStore) {
	t.Helper()
	cacheCfg := sharded.Config{
		Enabled:              cacheEnabled,
		CacheCapacity:        100,
		NumShards:            2,
		CacheUpdateOnDBRead:  cacheUpdateOnRead,
		CacheUpdateOnDBWrite: cacheUpdateOnWrite,
	}
	cache, err := sharded.New("db", cacheCfg, metrics.Noop{}, nil)
	if err != nil {
		t.Fatalf("sharded.New: %v", err)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.AsyncWrite = false
	adapter := memstore.New()
	st := store.New("db", storeCfg, adapter, lifecycle.New(), metrics.Noop{}, nil)

	mgr := New(Config{Enabled: true, Name: "db", Cache: cacheCfg, Store: storeCfg}, cache, st, nil)
	return mgr, adapter
}

// TestReadThrough is the spec's seed read-through property: after put(k,v)
// on the store directly (cache empty), first get returns (v,false), second
// returns (v,true).
func TestReadThrough(t *testing.T) {
	mgr, adapter := newTestManager(t, true, true, false)
	adapter.Put([]byte("k"), []byte("v"))

	v, fromCache, err := mgr.Get([]byte("k"))
	if err != nil || string(v) != "v" || fromCache {
		t.Fatalf("first get: v=%q fromCache=%v err=%v", v, fromCache, err)
	}

	v, fromCache, err = mgr.Get([]byte("k"))
	if err != nil || string(v) != "v" || !fromCache {
		t.Fatalf("second get: v=%q fromCache=%v err=%v", v, fromCache, err)
	}
}

func TestWriteThrough(t *testing.T) {
	mgr, adapter := newTestManager(t, true, false, true)
	if err := mgr.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, fromCache, err := mgr.Get([]byte("k"))
	if err != nil || string(v) != "v" || !fromCache {
		t.Fatalf("expected cache hit after write-through, got v=%q fromCache=%v err=%v", v, fromCache, err)
	}
	if _, ok := adapter.Snapshot()["k"]; !ok {
		t.Fatal("expected store to also have the key")
	}
}

func TestDisabledCacheStillHitsStore(t *testing.T) {
	mgr, _ := newTestManager(t, false, true, true)
	if err := mgr.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, fromCache, err := mgr.Get([]byte("k"))
	if err != nil || string(v) != "v" || fromCache {
		t.Fatalf("expected store-backed read (cache disabled): v=%q fromCache=%v err=%v", v, fromCache, err)
	}
}

func TestDeleteRemovesFromCacheAndStore(t *testing.T) {
	mgr, adapter := newTestManager(t, true, false, true)
	mgr.Put([]byte("k"), []byte("v"))
	if err := mgr.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := adapter.Snapshot()["k"]; ok {
		t.Fatal("expected key removed from store")
	}
	if _, _, err := mgr.Get([]byte("k")); err == nil {
		t.Fatal("expected not-found after delete")
	}
}
