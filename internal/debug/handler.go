// Package debug serves a JSON diagnostic snapshot of the engine's DB
// managers, the counterpart the kvshard-inspect CLI polls over HTTP —
// grounded on the teacher's own debug-endpoint-plus-inspector-CLI pairing.
package debug

import (
	"encoding/json"
	"net/http"
)

// Snapshotter is anything that can produce a diagnostic snapshot; satisfied
// by *kv.Engine.
type Snapshotter interface {
	Snapshot() []SnapshotEntry
}

// SnapshotEntry mirrors router.DBSnapshot without importing internal/router
// from this package, keeping debug usable by both internal and pkg callers.
type SnapshotEntry struct {
	Name     string `json:"name"`
	CacheLen int    `json:"cache_len"`
}

// Handler returns an http.Handler serving GET /debug/kvshard/snapshot: a
// JSON array of per-DB diagnostic entries drawn from s.
func Handler(s Snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(s.Snapshot())
	})
}
