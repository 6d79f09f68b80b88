// Package cache provides the in-memory read-through cache engine:
// a bounded TTL+LRU store, canonical key construction, and
// single-flight coalescing of concurrent misses.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is the store contract shared by every service façade.
type Cache interface {
	// Get retrieves a value. Expired entries are removed lazily and
	// reported as ErrNotFound.
	Get(ctx context.Context, key string) (any, error)

	// Set stores a value with a per-entry TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Len returns the number of resident entries. Entries past their
	// deadline count until the janitor or a Get prunes them.
	Len() int

	// Close stops background maintenance.
	Close() error
}
