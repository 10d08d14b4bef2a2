package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// launch starts n concurrent loads and gives them time to join the in-flight call
// before release is closed.
func launch(t *testing.T, g *Group[string], n int, fetch FetchFunc[string], release chan struct{}) ([]string, []error) {
	t.Helper()

	values := make([]string, n)
	errs := make([]error, n)

	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			values[i], _, errs[i] = g.Load(context.Background(), "key", fetch)
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	return values, errs
}

func TestGroup_Load_SingleFetch(t *testing.T) {
	cache := newMapCache()
	g := New[string](cache, Options{Shards: 4})

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "value-for-" + key, nil
	}

	values, errs := launch(t, g, 10, fetch, release)

	assert.Equal(t, int32(1), calls.Load())
	for i := range values {
		require.NoError(t, errs[i])
		assert.Equal(t, "value-for-key", values[i])
	}

	cached, ok := cache.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value-for-key", cached)
}

func TestGroup_Load_ErrorSharedAndNotCached(t *testing.T) {
	cache := newMapCache()
	g := New[string](cache, Options{})

	boom := errors.New("store down")
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "", boom
	}

	_, errs := launch(t, g, 5, fetch, release)

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}

	_, ok := cache.Get("key")
	assert.False(t, ok, "failed fetch must not populate the cache")

	// The failed call is gone; the next load fetches again.
	v, _, err := g.Load(context.Background(), "key", func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGroup_Load_LeaderRechecksCache(t *testing.T) {
	cache := newMapCache()
	cache.Put("key", "filled-meanwhile")
	g := New[string](cache, Options{})

	v, _, err := g.Load(context.Background(), "key", func(ctx context.Context, key string) (string, error) {
		t.Fatal("fetch must not run when the cache is already populated")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "filled-meanwhile", v)
}

func TestGroup_Load_WaitTimeout(t *testing.T) {
	g := New[string](newMapCache(), Options{WaitTimeout: 20 * time.Millisecond})

	release := make(chan struct{})
	defer close(release)

	_, _, err := g.Load(context.Background(), "slow", func(ctx context.Context, key string) (string, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestGroup_Load_CallerCancelDoesNotCancelFetch(t *testing.T) {
	cache := newMapCache()
	g := New[string](cache, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	finished := make(chan error, 1)

	go func() {
		_, _, err := g.Load(ctx, "key", func(fetchCtx context.Context, key string) (string, error) {
			close(started)
			time.Sleep(30 * time.Millisecond)
			finished <- fetchCtx.Err()
			return "done", nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	}()

	<-started
	cancel()

	require.NoError(t, <-finished)
	require.Eventually(t, func() bool {
		_, ok := cache.Get("key")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestGroup_Load_FetchTimeout(t *testing.T) {
	g := New[string](newMapCache(), Options{FetchTimeout: 10 * time.Millisecond})

	_, _, err := g.Load(context.Background(), "key", func(ctx context.Context, key string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroup_Forget(t *testing.T) {
	g := New[string](newMapCache(), Options{})

	started := make(chan struct{})
	release := make(chan struct{})
	first := make(chan string, 1)

	go func() {
		v, _, _ := g.Load(context.Background(), "key", func(ctx context.Context, key string) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		first <- v
	}()

	<-started
	g.Forget("key")

	v, shared, err := g.Load(context.Background(), "key", func(ctx context.Context, key string) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.False(t, shared)

	close(release)
	assert.Equal(t, "stale", <-first, "callers already waiting keep the original result")
}
