// Package lifecycle implements the engine's monotonic shutdown signal (C8):
// a boolean that transitions false→true once and never resets, observed
// cooperatively by async-writer worker loops across every DB instance.
package lifecycle

import "sync/atomic"

// Flag is a monotonic shutdown signal shared, by reference, across every
// component that needs to observe it. The zero value is a valid, not-yet-shut
// down flag.
type Flag struct {
	shutdown atomic.Bool
}

// New constructs a Flag that has not been shut down.
func New() *Flag {
	return &Flag{}
}

// Shutdown sets the flag. Safe to call more than once; subsequent calls are
// no-ops.
func (f *Flag) Shutdown() {
	f.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown has been called.
func (f *Flag) IsShutdown() bool {
	return f.shutdown.Load()
}
