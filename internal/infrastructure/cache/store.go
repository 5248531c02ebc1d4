// Package cache provides the dictionary lookup cache: a keyed region with
// pluggable storage, single-flight loading and invalidation via PostgreSQL
// LISTEN/NOTIFY.
package cache

import (
	"context"
)

// Store is the storage backend of a cache region.
type Store[V any] interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (V, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value V) error

	// Clear removes every key of the region.
	Clear(ctx context.Context) error
}
