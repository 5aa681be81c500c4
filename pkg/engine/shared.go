package engine

import (
	"context"
	"sync"
)

// SharedCache memoizes expensive lookups within one request. When several
// trigger instances rank concurrently and need the same external resource,
// only the first caller performs the lookup; the rest get the cached result,
// error included.
type SharedCache struct {
	mu      sync.Mutex
	entries map[string]*sharedEntry
}

type sharedEntry struct {
	once sync.Once
	val  any
	err  error
}

// NewSharedCache creates an empty cache.
func NewSharedCache() *SharedCache {
	return &SharedCache{entries: make(map[string]*sharedEntry)}
}

// Do returns the memoized result for key, running fn at most once per cache
// lifetime. The first caller's context is the one fn observes.
func (c *SharedCache) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &sharedEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.val, e.err = fn(ctx)
	})
	return e.val, e.err
}
