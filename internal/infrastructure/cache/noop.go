package cache

import (
	"context"
	"time"

	"github.com/sp3dr4/tern/internal/domain"
)

// NoOpCache stands in for the shared tier when Redis is disabled. Every lookup misses.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(_ context.Context, _ string) (*domain.Mapping, error) {
	return nil, nil
}

func (c *NoOpCache) Set(_ context.Context, _ *domain.Mapping, _ time.Duration) error {
	return nil
}

func (c *NoOpCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (c *NoOpCache) Ping(_ context.Context) error {
	return nil
}
