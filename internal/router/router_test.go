package router

import (
	"errors"
	"io"
	"testing"

	"github.com/Voskan/kvshard/internal/dbmanager"
	"github.com/Voskan/kvshard/internal/kverrors"
	"github.com/Voskan/kvshard/internal/lifecycle"
	"github.com/Voskan/kvshard/internal/metrics"
	"github.com/Voskan/kvshard/internal/record"
	"github.com/Voskan/kvshard/internal/sharded"
	"github.com/Voskan/kvshard/internal/store"
	"github.com/Voskan/kvshard/internal/store/memstore"
)

func newManager(t *testing.T, name string) (*dbmanager.Manager, *memstore.MemStore) {
	t.Helper()
	cacheCfg := sharded.Config{Enabled: true, CacheCapacity: 100, NumShards: 2, CacheUpdateOnDBRead: true, CacheUpdateOnDBWrite: true}
	cache, err := sharded.New(name, cacheCfg, metrics.Noop{}, nil)
	if err != nil {
		t.Fatalf("sharded.New: %v", err)
	}
	storeCfg := store.DefaultConfig()
	storeCfg.AsyncWrite = false
	adapter := memstore.New()
	st := store.New(name, storeCfg, adapter, lifecycle.New(), metrics.Noop{}, nil)
	mgr := dbmanager.New(dbmanager.Config{Enabled: true, Name: name, Cache: cacheCfg, Store: storeCfg}, cache, st, nil)
	return mgr, adapter
}

// TestRouterRegexExtractionAndOverride is spec seed scenario 5: DBs
// ["red","blue"], extractor enabled with rule ^user: -> red. A request with
// no db_name routes to "red" via extraction; a request with db_name "blue"
// and override_nonempty=false keeps routing to "blue".
func TestRouterRegexExtractionAndOverride(t *testing.T) {
	red, redStore := newManager(t, "red")
	blue, _ := newManager(t, "blue")

	cfg := Extractor{
		Enabled:          true,
		OverrideNonempty: false,
		Mappings:         []RegexMapping{{Pattern: "^user:", NewDBName: "red"}},
	}
	r, err := New([]*dbmanager.Manager{red, blue}, cfg, lifecycle.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req1 := record.NewWithDBName(nil, []byte("user:42"), []byte("v1"))
	if err := r.PutRecord(req1); err != nil {
		t.Fatalf("put req1: %v", err)
	}
	if _, ok := redStore.Snapshot()["user:42"]; !ok {
		t.Fatal("expected req1 routed to red (regex extraction on empty db_name)")
	}

	req2 := record.NewWithDBName([]byte("blue"), []byte("user:42"), []byte("v2"))
	if err := r.PutRecord(req2); err != nil {
		t.Fatalf("put req2: %v", err)
	}
	v, _, err := blue.Get([]byte("user:42"))
	if err != nil || string(v) != "v2" {
		t.Fatalf("expected req2 to stay routed to blue (override_nonempty=false): v=%q err=%v", v, err)
	}
}

func TestRouterNameDispatch(t *testing.T) {
	red, redStore := newManager(t, "red")
	blue, blueStore := newManager(t, "blue")

	r, err := New([]*dbmanager.Manager{red, blue}, Extractor{}, lifecycle.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := r.PutRecord(record.NewWithDBName([]byte("blue"), []byte("k"), []byte("v"))); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := blueStore.Snapshot()["k"]; !ok {
		t.Fatal("expected key routed to blue by explicit name")
	}
	if _, ok := redStore.Snapshot()["k"]; ok {
		t.Fatal("expected key NOT routed to red")
	}
}

func TestRouterHashFallbackIsStable(t *testing.T) {
	red, _ := newManager(t, "red")
	blue, _ := newManager(t, "blue")

	r, err := New([]*dbmanager.Manager{red, blue}, Extractor{}, lifecycle.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := record.NewKeyOnly([]byte("unrouted-key"))
	first := r.resolve(rec)
	for i := 0; i < 10; i++ {
		if r.resolve(rec) != first {
			t.Fatal("expected hash fallback to be stable across calls")
		}
	}
}

func TestRouterRejectsEmptyManagerList(t *testing.T) {
	if _, err := New(nil, Extractor{}, lifecycle.New(), nil); err == nil {
		t.Fatal("expected error constructing router with no managers")
	}
}

func TestRouterFanOutRejectsUnknownName(t *testing.T) {
	red, _ := newManager(t, "red")
	blue, _ := newManager(t, "blue")

	r, err := New([]*dbmanager.Manager{red, blue}, Extractor{}, lifecycle.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := r.ExportLRUKeys("green", ""); !errors.Is(err, kverrors.ErrNoDB) {
		t.Fatalf("ExportLRUKeys: expected ErrNoDB, got %v", err)
	}
	if err := r.PurgeOld("green", 1); !errors.Is(err, kverrors.ErrNoDB) {
		t.Fatalf("PurgeOld: expected ErrNoDB, got %v", err)
	}
	if err := r.Backup("green", func(string) (io.WriteCloser, error) {
		t.Fatal("newWriter must not be called for an unmatched name")
		return nil, nil
	}); !errors.Is(err, kverrors.ErrNoDB) {
		t.Fatalf("Backup: expected ErrNoDB, got %v", err)
	}
}

func TestRouterShutdownClosesAllManagers(t *testing.T) {
	red, _ := newManager(t, "red")
	blue, _ := newManager(t, "blue")
	shutdown := lifecycle.New()

	r, err := New([]*dbmanager.Manager{red, blue}, Extractor{}, shutdown, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !shutdown.IsShutdown() {
		t.Fatal("expected shared shutdown flag to be set")
	}
}
