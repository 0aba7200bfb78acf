package audiostore

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

type memObject struct {
	Object
	storedAt time.Time
}

// MemStore is an in-process Store. Objects older than the configured TTL are
// dropped lazily on Put and reported as missing by Get.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	ttl     time.Duration
	now     func() time.Time
}

// NewMemStore creates a MemStore. ttl <= 0 keeps objects forever.
func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{
		objects: make(map[string]memObject),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put implements Store.
func (s *MemStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	buf := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.ttl > 0 {
		for k, o := range s.objects {
			if now.Sub(o.storedAt) > s.ttl {
				delete(s.objects, k)
			}
		}
	}
	s.objects[key] = memObject{Object: Object{Data: buf, ContentType: contentType}, storedAt: now}
	return nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	o, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok || (s.ttl > 0 && s.now().Sub(o.storedAt) > s.ttl) {
		return nil, ErrNotFound
	}
	return &Object{Data: o.Data, ContentType: o.ContentType}, nil
}

// Len returns the number of objects currently held, expired or not.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
