// Package batch carries the per-request caching context association
// resolvers use to coalesce repeated related-record fetches. When no cache is
// installed the resolvers fall back to the raw request context and simply
// lose the coalescing.
package batch

import (
	"context"
	"sync"
)

// Cache is the request-scoped store contract.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

type cacheKey struct{}

// WithCache installs a fresh request-scoped cache on the context.
func WithCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, newRequestCache())
}

// FromContext returns the request cache, or nil when none is installed.
func FromContext(ctx context.Context) Cache {
	if ctx == nil {
		return nil
	}
	cache, _ := ctx.Value(cacheKey{}).(Cache)
	return cache
}

type requestCache struct {
	mu     sync.Mutex
	values map[string]any
}

func newRequestCache() *requestCache {
	return &requestCache{values: map[string]any{}}
}

func (c *requestCache) Get(_ context.Context, key string) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *requestCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *requestCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}
