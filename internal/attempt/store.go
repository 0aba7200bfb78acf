package attempt

import (
	"sync"
	"time"
)

// entry guards one attempt. The sweeper only ever uses TryLock on mu, and
// skips entries with confirms in flight.
type entry struct {
	mu        sync.Mutex
	a         Attempt
	inflight  int
	expiredAt time.Time
}

// MemStore is the in-memory arena of attempts, keyed by id. Safe for
// concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*entry)}
}

func (s *MemStore) put(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.a.ID] = e
}

func (s *MemStore) get(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *MemStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// snapshot returns the current entries in no particular order.
func (s *MemStore) snapshot() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of stored attempts.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
