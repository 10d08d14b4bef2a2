// Package lru provides a fixed-capacity, concurrency-safe least-recently-used cache.
//
// Entries live in a pre-sized slice of nodes linked into a doubly-linked recency
// list by index. A map resolves keys to node indices, so lookup, promotion and
// eviction are all O(1). Slots released by Remove go onto a free list and are
// reused before the pool grows.
//
// Get reorders the recency list, so it is a write as far as the internal state is
// concerned. Every operation takes the same exclusive lock; there is no read lock.
package lru

import (
	"sync"

	"github.com/sp3dr4/tern/internal/domain"
)

const nilIndex = -1

type node[K comparable, V any] struct {
	key   K
	value V
	prev  int
	next  int
}

// Cache is a bounded LRU cache. The zero value is not usable; call New.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	index    map[K]int
	nodes    []node[K, V]
	free     []int

	// head is the most recently used node, tail the least.
	head int
	tail int
}

// New returns an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, &domain.ConfigError{Field: "cache capacity", Reason: "must be greater than zero"}
	}

	return &Cache[K, V]{
		capacity: capacity,
		index:    make(map[K]int, capacity),
		nodes:    make([]node[K, V], 0, capacity),
		head:     nilIndex,
		tail:     nilIndex,
	}, nil
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.moveToFront(i)
	return c.nodes[i].value, true
}

// Put inserts or overwrites key as the most recently used entry. Inserting into a
// full cache evicts the least recently used entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[key]; ok {
		c.nodes[i].value = value
		c.moveToFront(i)
		return
	}

	i := c.allocate()
	c.nodes[i] = node[K, V]{key: key, value: value, prev: nilIndex, next: nilIndex}
	c.index[key] = i
	c.pushFront(i)
}

// Remove deletes key and reports whether it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		return false
	}

	c.release(i)
	return true
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.index))
	for i := c.head; i != nilIndex; i = c.nodes[i].next {
		keys = append(keys, c.nodes[i].key)
	}
	return keys
}

// allocate returns a detached slot, evicting the tail when the pool is full.
func (c *Cache[K, V]) allocate() int {
	if n := len(c.free); n > 0 {
		i := c.free[n-1]
		c.free = c.free[:n-1]
		return i
	}

	if len(c.nodes) < c.capacity {
		c.nodes = append(c.nodes, node[K, V]{})
		return len(c.nodes) - 1
	}

	victim := c.tail
	c.unlink(victim)
	delete(c.index, c.nodes[victim].key)
	return victim
}

func (c *Cache[K, V]) release(i int) {
	c.unlink(i)
	delete(c.index, c.nodes[i].key)
	c.nodes[i] = node[K, V]{prev: nilIndex, next: nilIndex}
	c.free = append(c.free, i)
}

func (c *Cache[K, V]) moveToFront(i int) {
	if c.head == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

func (c *Cache[K, V]) pushFront(i int) {
	n := &c.nodes[i]
	n.prev = nilIndex
	n.next = c.head

	if c.head != nilIndex {
		c.nodes[c.head].prev = i
	}
	c.head = i

	if c.tail == nilIndex {
		c.tail = i
	}
}

func (c *Cache[K, V]) unlink(i int) {
	n := &c.nodes[i]

	if n.prev != nilIndex {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}

	if n.next != nilIndex {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}

	n.prev = nilIndex
	n.next = nilIndex
}
