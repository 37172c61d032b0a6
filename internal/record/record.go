// Package record defines the request record carried through every layer of
// the engine: router, DB manager, sharded cache and store adapter all accept
// the same value so the fingerprint is computed exactly once, at
// construction, and never rehashed downstream.
package record

import "github.com/Voskan/kvshard/internal/fingerprint"

// Record is an immutable request: a key/value pair bound to its fingerprint
// and the routing hints the caller supplied. Construct one with New or
// NewWithDBName; the zero value is not valid (Key is nil and the fingerprint
// was never computed).
type Record struct {
	Fingerprint uint64
	Key         []byte
	Value       []byte
	DBName      []byte
	SkipDB      bool
	SkipCache   bool
}

// New builds a Record for key/value with no explicit DB routing hint.
func New(key, value []byte) Record {
	return Record{
		Fingerprint: fingerprint.Of(key),
		Key:         key,
		Value:       value,
	}
}

// NewWithDBName builds a Record carrying an explicit db-name routing hint.
func NewWithDBName(dbName, key, value []byte) Record {
	r := New(key, value)
	r.DBName = dbName
	return r
}

// NewKeyOnly builds a Record for key-only operations (get, delete) where no
// value is carried.
func NewKeyOnly(key []byte) Record {
	return New(key, nil)
}
