package kv

import "github.com/Voskan/kvshard/internal/kverrors"

// Re-exported sentinel errors (spec.md §7). Callers should use errors.Is
// against these, never compare error strings.
var (
	ErrNotFound     = kverrors.ErrNotFound
	ErrDisabled     = kverrors.ErrDisabled
	ErrQueueClosed  = kverrors.ErrQueueClosed
	ErrConfigInvalid = kverrors.ErrConfigInvalid
	ErrNoDB         = kverrors.ErrNoDB
)
