package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/tern/internal/domain"
)

const keyPrefix = "mapping:"

// MappingCache is the shared tier between the in-process LRU and the store.
type MappingCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewMappingCache(client *redis.Client, logger *slog.Logger) *MappingCache {
	return &MappingCache{
		client: client,
		logger: logger,
	}
}

func (c *MappingCache) Get(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	key := buildKey(shortCode)

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Error("Failed to get from cache", "key", key, "error", err)
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var mapping domain.Mapping
	if err := json.Unmarshal(val, &mapping); err != nil {
		c.logger.Error("Failed to unmarshal cached value", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return &mapping, nil
}

func (c *MappingCache) Set(ctx context.Context, mapping *domain.Mapping, ttl time.Duration) error {
	key := buildKey(mapping.ShortCode)

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set cache", "key", key, "error", err)
		return fmt.Errorf("cache set failed: %w", err)
	}

	return nil
}

func (c *MappingCache) Delete(ctx context.Context, shortCode string) error {
	key := buildKey(shortCode)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete from cache", "key", key, "error", err)
		return fmt.Errorf("cache delete failed: %w", err)
	}

	return nil
}

func (c *MappingCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func buildKey(shortCode string) string {
	return keyPrefix + shortCode
}
