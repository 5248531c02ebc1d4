package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps values in process memory. Get returns the stored value
// itself, so callers share it and must not mutate it.
type MemoryStore[V any] struct {
	items *ttlcache.Cache[string, V]
}

// NewMemoryStore creates an in-process store. A zero ttl keeps entries until Clear.
// Hits do not extend the lifetime of an entry.
func NewMemoryStore[V any](ttl time.Duration) *MemoryStore[V] {
	return &MemoryStore[V]{
		items: ttlcache.New[string, V](
			ttlcache.WithTTL[string, V](ttl),
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
	}
}

// Get implements Store.
func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	item := s.items.Get(key)
	if item == nil || item.IsExpired() {
		var zero V
		return zero, false, nil
	}
	return item.Value(), true, nil
}

// Set implements Store.
func (s *MemoryStore[V]) Set(_ context.Context, key string, value V) error {
	s.items.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

// Clear implements Store.
func (s *MemoryStore[V]) Clear(context.Context) error {
	s.items.DeleteAll()
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore[V]) Len() int {
	s.items.DeleteExpired()
	return s.items.Len()
}
