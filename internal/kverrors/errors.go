// Package kverrors defines the sentinel error kinds shared across the
// engine (spec.md §7). NotFound is deliberately not among them: absence is
// modeled as a (value, bool) or (value, error-is-ErrNotFound) result, never
// as a distinct failure path callers must special-case beyond an errors.Is
// check.
package kverrors

import "errors"

var (
	// ErrNotFound indicates the requested key is absent from the store.
	ErrNotFound = errors.New("kvshard: not found")
	// ErrDisabled indicates the operation targets a disabled store or DB
	// manager. A disabled cache never returns it: its operations short-circuit.
	ErrDisabled = errors.New("kvshard: disabled")
	// ErrQueueClosed indicates an async write was attempted after the
	// writer's queue was closed (shutdown drained).
	ErrQueueClosed = errors.New("kvshard: async queue closed")
	// ErrConfigInvalid indicates a config value failed validation.
	ErrConfigInvalid = errors.New("kvshard: invalid config")
	// ErrNoDB indicates a caller named a specific DB in a fan-out operation
	// (ExportLRUKeys, Backup, PurgeOld) that isn't among the configured DBs.
	// Ordinary per-request routing never returns this: it always falls back
	// to the hash slot and so never fails to find a manager.
	ErrNoDB = errors.New("kvshard: no db instance available")
)
