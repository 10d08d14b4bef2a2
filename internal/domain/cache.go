package domain

import (
	"context"
	"time"
)

// Cache is a shared second-tier cache that sits between the in-process LRU
// and the backing store.
type Cache interface {
	// Get returns (nil, nil) on a miss
	Get(ctx context.Context, shortCode string) (*Mapping, error)

	// Set stores a mapping with the specified TTL
	Set(ctx context.Context, mapping *Mapping, ttl time.Duration) error

	// Delete removes a mapping from cache
	Delete(ctx context.Context, shortCode string) error

	// Ping checks if the cache is available
	Ping(ctx context.Context) error
}
