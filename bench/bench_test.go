// Package bench provides reproducible micro-benchmarks for the kvshard
// engine. Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks use a fixed key/value shape so results are comparable
// across versions:
//   - Key   – 32 random bytes (matches spec seed scenario 2's key shape)
//   - Value – 64-byte payload
//
// We measure:
//  1. Put        – write-only workload, synchronous store
//  2. PutAsync   – write-only workload, async pipeline
//  3. Get        – read-only workload after warm-up (cache hits)
//  4. GetParallel – highly concurrent cache-hit reads (b.RunParallel)
//
// NOTE: unit tests live alongside each package; this file is only for
// performance.
package bench

import (
	"math/rand"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Voskan/kvshard/pkg/kv"
)

const (
	numKeys  = 1 << 16 // 64k keys for dataset
	valueLen = 64
)

var dataset = func() [][]byte {
	rnd := rand.New(rand.NewSource(42))
	ds := make([][]byte, numKeys)
	for i := range ds {
		k := make([]byte, 32)
		rnd.Read(k)
		ds[i] = k
	}
	return ds
}()

var value = make([]byte, valueLen)

func newBenchEngine(b *testing.B, async bool) *kv.Engine {
	b.Helper()
	storeCfg := kv.DefaultStoreConfig()
	storeCfg.DBPath = filepath.Join(b.TempDir(), "db")
	storeCfg.BackupPath = filepath.Join(b.TempDir(), "backup")
	storeCfg.RestoreFromBackupAtStartup = false
	storeCfg.AsyncWrite = async
	storeCfg.NumAsyncWriterThreads = runtime.GOMAXPROCS(0)
	storeCfg.AsyncWriteQueueLength = numKeys
	storeCfg.MinCountForBatchWrite = 64

	cacheCfg := kv.DefaultCacheConfig()
	cacheCfg.CacheCapacity = numKeys
	cacheCfg.NumShards = 64

	eng, err := kv.New(kv.SingleDB("bench", cacheCfg, storeCfg))
	if err != nil {
		b.Fatalf("kv.New: %v", err)
	}
	return eng
}

func BenchmarkPutSync(b *testing.B) {
	eng := newBenchEngine(b, false)
	defer eng.Shutdown()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.Put(dataset[i&(numKeys-1)], value)
	}
}

func BenchmarkPutAsync(b *testing.B) {
	eng := newBenchEngine(b, true)
	defer eng.Shutdown()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.Put(dataset[i&(numKeys-1)], value)
	}
}

func BenchmarkGet(b *testing.B) {
	eng := newBenchEngine(b, false)
	defer eng.Shutdown()

	for _, k := range dataset {
		_ = eng.Put(k, value)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = eng.Get(dataset[i&(numKeys-1)])
	}
}

func BenchmarkGetParallel(b *testing.B) {
	eng := newBenchEngine(b, false)
	defer eng.Shutdown()

	for _, k := range dataset {
		_ = eng.Put(k, value)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(numKeys)
		for pb.Next() {
			idx = (idx + 1) & (numKeys - 1)
			_, _, _ = eng.Get(dataset[idx])
		}
	})
}
