// Package unsafehelpers centralises the engine's one unavoidable use of the
// `unsafe` standard-library package: a zero-copy []byte -> string conversion
// for map lookups that don't retain their key argument.
package unsafehelpers

import "unsafe"

// BytesToString converts a mutable byte slice to an immutable string without
// allocating. The caller must guarantee that b is not retained or modified
// beyond the call the resulting string is used in — map lookups satisfy this
// since they never retain the key argument.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
