package lru

import (
	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/pkg/shard"
)

// Sharded spreads string keys over independently locked caches. Recency is
// tracked per shard, so eviction is least-recently-used within a shard only.
type Sharded[V any] struct {
	shards []*Cache[string, V]
}

// NewSharded splits capacity evenly across shards, rounding up so the total is
// never below the requested capacity.
func NewSharded[V any](capacity, shards int) (*Sharded[V], error) {
	if capacity <= 0 {
		return nil, &domain.ConfigError{Field: "cache capacity", Reason: "must be greater than zero"}
	}
	if shards <= 0 {
		return nil, &domain.ConfigError{Field: "cache shards", Reason: "must be greater than zero"}
	}
	if shards > capacity {
		shards = capacity
	}

	per := (capacity + shards - 1) / shards
	s := &Sharded[V]{shards: make([]*Cache[string, V], shards)}
	for i := range s.shards {
		c, err := New[string, V](per)
		if err != nil {
			return nil, err
		}
		s.shards[i] = c
	}
	return s, nil
}

func (s *Sharded[V]) Get(key string) (V, bool) {
	return s.shardFor(key).Get(key)
}

func (s *Sharded[V]) Put(key string, value V) {
	s.shardFor(key).Put(key, value)
}

func (s *Sharded[V]) Remove(key string) bool {
	return s.shardFor(key).Remove(key)
}

func (s *Sharded[V]) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}

func (s *Sharded[V]) Capacity() int {
	n := 0
	for _, c := range s.shards {
		n += c.Capacity()
	}
	return n
}

func (s *Sharded[V]) shardFor(key string) *Cache[string, V] {
	return s.shards[shard.Index(key, len(s.shards))]
}
