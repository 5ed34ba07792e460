package history

import (
	"context"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// defaultCapacity bounds the in-memory log. Only a handful of turns are ever
// prompted with, so a small window is plenty.
const defaultCapacity = 100

// MemStore is a thread-safe, bounded in-memory implementation of [Store].
// When full, the oldest entries are discarded.
type MemStore struct {
	mu      sync.RWMutex
	cap     int
	entries []Entry
}

// NewMemStore returns a [MemStore] holding at most capacity entries. A
// non-positive capacity uses a sensible default.
func NewMemStore(capacity int) *MemStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemStore{cap: capacity}
}

// Append implements [Store.Append].
func (s *MemStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

// Recent implements [Store.Recent].
func (s *MemStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]Entry, limit)
	copy(out, s.entries[len(s.entries)-limit:])
	return out, nil
}
