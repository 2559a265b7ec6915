package inject

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// instanceCache holds the values a scope owns. Concurrent first-time builds
// of the same key collapse into one.
type instanceCache struct {
	mu        sync.RWMutex
	instances map[string]any

	flightMu sync.Mutex
	flights  map[string]*flight
	gen      uint64
	group    singleflight.Group
}

// flight is an in-progress build. Its context is cancelled once every caller
// waiting on it has given up; later callers start a new flight.
type flight struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		instances: make(map[string]any),
		flights:   make(map[string]*flight),
	}
}

func (c *instanceCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.instances[key]
	return v, ok
}

// store caches v unless a value is already cached, and returns the cached one.
func (c *instanceCache) store(key string, v any) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.instances[key]; ok {
		return existing
	}
	c.instances[key] = v
	return v
}

func (c *instanceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// getOrBuild returns the cached value for key, running build at most once
// across concurrent callers. Every caller waiting on the same build receives
// its value or its error. A caller whose ctx ends stops waiting; when the
// last waiter leaves, the context passed to build is cancelled.
func (c *instanceCache) getOrBuild(ctx context.Context, key string, build func(ctx context.Context) (any, error)) (v any, hit bool, err error) {
	if v, ok := c.get(key); ok {
		return v, true, nil
	}

	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(f.id, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}

		v, err := build(f.ctx)
		if err != nil {
			return nil, err
		}

		return c.store(key, v), nil
	})

	select {
	case res := <-ch:
		return res.Val, false, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *instanceCache) join(ctx context.Context, key string) *flight {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		c.gen++
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{id: key + "#" + strconv.FormatUint(c.gen, 10), ctx: bctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++

	return f
}

func (c *instanceCache) leave(key string, f *flight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}
