// Package coalesce collapses concurrent cache-miss fetches for the same key into a
// single call to the backing source.
//
// The first caller for a key becomes the leader: it re-checks the cache, runs the
// fetch, and fills the cache on success. Callers that arrive while the fetch is in
// flight wait for it and receive the same value or error. Failed fetches are never
// written to the cache.
//
// Coordination is delegated to singleflight, which removes a key's in-flight call
// under the same lock it uses to register followers, so nobody can attach to a call
// that has already completed.
package coalesce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sp3dr4/tern/internal/pkg/shard"
)

// ErrWaitTimeout is returned when a caller gave up waiting on an in-flight fetch.
var ErrWaitTimeout = errors.New("timed out waiting for in-flight fetch")

// Cache is the subset of cache behaviour the group needs.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V)
}

// FetchFunc loads the value for key from the slow source.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

type Options struct {
	// Shards is the number of independent singleflight groups. Values below 1 mean 1.
	Shards int

	// FetchTimeout bounds a single shared fetch. Zero means no bound beyond the caller's.
	FetchTimeout time.Duration

	// WaitTimeout bounds how long any caller waits for a fetch result. Zero means
	// callers wait until the fetch returns or their context ends.
	WaitTimeout time.Duration
}

// Group coalesces fetches keyed by string.
type Group[V any] struct {
	cache        Cache[V]
	flights      []singleflight.Group
	fetchTimeout time.Duration
	waitTimeout  time.Duration
}

func New[V any](cache Cache[V], opts Options) *Group[V] {
	shards := opts.Shards
	if shards < 1 {
		shards = 1
	}

	return &Group[V]{
		cache:        cache,
		flights:      make([]singleflight.Group, shards),
		fetchTimeout: opts.FetchTimeout,
		waitTimeout:  opts.WaitTimeout,
	}
}

// Load returns the value for key, fetching it at most once across concurrent
// callers. shared reports whether the result was also delivered to other callers.
//
// The fetch runs detached from the cancellation of whichever caller started it,
// so one caller going away does not fail the rest. Values from its context are
// kept.
func (g *Group[V]) Load(ctx context.Context, key string, fetch FetchFunc[V]) (value V, shared bool, err error) {
	flight := &g.flights[shard.Index(key, len(g.flights))]

	ch := flight.DoChan(key, func() (any, error) {
		if v, ok := g.cache.Get(key); ok {
			return v, nil
		}

		fetchCtx := context.WithoutCancel(ctx)
		if g.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, g.fetchTimeout)
			defer cancel()
		}

		v, err := fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		g.cache.Put(key, v)
		return v, nil
	})

	waitCtx := ctx
	if g.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.waitTimeout)
		defer cancel()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return value, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return value, false, ctx.Err()
		}
		return value, false, fmt.Errorf("%w: key %q after %s", ErrWaitTimeout, key, g.waitTimeout)
	}
}

// Forget drops any in-flight call for key so the next Load starts a fresh fetch.
// Callers already waiting still receive the original result.
func (g *Group[V]) Forget(key string) {
	g.flights[shard.Index(key, len(g.flights))].Forget(key)
}
