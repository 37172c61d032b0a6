// Package lru implements a single capacity-bounded, in-memory LRU partition
// over byte keys and byte values. It is the C2 building block of the sharded
// cache: callers that need lock-striped concurrency compose many Shards
// behind a slot function rather than asking this package to shard itself.
//
// A single mutex guards both the ordering structure and the index map, as in
// the teacher's shard design — no operation yields while holding the lock,
// so no I/O or callback runs under it.
package lru

import (
	"container/list"
	"io"
	"sync"

	"github.com/Voskan/kvshard/internal/unsafehelpers"
)

type entry struct {
	key   string
	value []byte
}

// Shard is a fixed-capacity LRU over byte keys and byte values. The zero
// value is not usable; construct with New.
type Shard struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List               // front = most-recently-used
	index    map[string]*list.Element // key -> element (element.Value is *entry)
}

// New constructs an empty shard with the given capacity. capacity must be
// >= 1.
func New(capacity int) *Shard {
	if capacity < 1 {
		capacity = 1
	}
	return &Shard{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the current value for key and promotes it to most-recent
// position. It never fails; absence is reported via ok=false and does not
// mutate ordering.
func (s *Shard) Get(key []byte) (value []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The lookup key never escapes this call (map lookups don't retain their
	// key argument), so the zero-copy view is safe even though key is not
	// copied.
	el, found := s.index[unsafehelpers.BytesToString(key)]
	if !found {
		return nil, false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Put inserts or overwrites key with value. If inserting would exceed
// capacity, the least-recently-used entry is evicted first.
func (s *Shard) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key)
	if el, found := s.index[k]; found {
		el.Value.(*entry).value = value
		s.ll.MoveToFront(el)
		return
	}

	if s.ll.Len() >= s.capacity {
		s.evictOldestLocked()
	}

	el := s.ll.PushFront(&entry{key: k, value: value})
	s.index[k] = el
}

// Delete removes key if present; it is a no-op otherwise.
func (s *Shard) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, found := s.index[unsafehelpers.BytesToString(key)]; found {
		s.ll.Remove(el)
		delete(s.index, el.Value.(*entry).key)
	}
}

// Len returns the current number of entries held by the shard.
func (s *Shard) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// IsEmpty reports whether the shard holds zero entries.
func (s *Shard) IsEmpty() bool {
	return s.Len() == 0
}

// ExportKeys iterates the shard oldest-to-newest and writes each key
// followed by CRLF to w, returning the number of keys written or the first
// I/O error encountered.
func (s *Shard) ExportKeys(w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for el := s.ll.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if _, err := w.Write([]byte(e.key)); err != nil {
			return count, err
		}
		if _, err := w.Write(crlf); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Shard) evictOldestLocked() {
	oldest := s.ll.Back()
	if oldest == nil {
		return
	}
	s.ll.Remove(oldest)
	delete(s.index, oldest.Value.(*entry).key)
}

var crlf = []byte("\r\n")
