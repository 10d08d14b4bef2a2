// Package shard maps string keys onto a fixed number of partitions.
package shard

import "github.com/cespare/xxhash/v2"

// Index returns the partition for key in [0, n). n <= 1 always yields 0.
func Index(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}
