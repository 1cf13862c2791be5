package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Value caches a single value with a TTL. It is safe for concurrent use.
type Value[T any] struct {
	mu        sync.RWMutex
	value     T
	set       bool
	expiresAt time.Time
	now       func() time.Time
	loads     singleflight.Group
}

// NewValue creates an empty cache.
func NewValue[T any]() *Value[T] {
	return &Value[T]{now: time.Now}
}

// Get returns the cached value if it has not expired.
func (c *Value[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.set || !c.now().Before(c.expiresAt) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v for ttl.
func (c *Value[T]) Set(v T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.set = true
	c.expiresAt = c.now().Add(ttl)
}

// Clear removes the cached value.
func (c *Value[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.set = false
	c.expiresAt = time.Time{}
}

// GetOrLoad returns the cached value or calls load and caches its result
// for ttl. Concurrent misses share one load call. Errors are returned to
// every waiting caller and not cached.
func (c *Value[T]) GetOrLoad(ctx context.Context, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(); ok {
		return v, nil
	}

	res, err, _ := c.loads.Do("value", func() (any, error) {
		if v, ok := c.Get(); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			c.Clear()
			return v, err
		}
		c.Set(v, ttl)
		return v, nil
	})
	v, _ := res.(T)
	return v, err
}
