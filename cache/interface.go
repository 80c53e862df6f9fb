// Package cache provides the identity-scoped query cache shared by all remote reads.
package cache

import (
	"context"
	"time"
)

// QueryCache defines the cache consumed by review/list reads.
type QueryCache interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: supports a trailing wildcard (review:123:*)
	Invalidate(ctx context.Context, pattern string) error

	// Reset drops every entry. Called on identity changes.
	Reset(ctx context.Context) error
}
