// Package cache is an in-memory key/value store with per-entry TTL. It serves stale-but-valid
// data when live collaborator calls fail.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often Run sweeps expired entries.
const DefaultCleanupInterval = 5 * time.Minute

type entry struct {
	data      any
	timestamp time.Time
	expiresIn time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.expiresIn
}

// Cache holds at most one live entry per key.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{items: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores data under key for expiresIn.
func (c *Cache) Set(key string, data any, expiresIn time.Duration) {
	c.mu.Lock()
	c.items[key] = entry{data: data, timestamp: c.now(), expiresIn: expiresIn}
	c.mu.Unlock()
}

// Get returns the value for key if present and not expired. Expired entries are evicted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.items, key)
		return nil, false
	}
	return e.data, true
}

// Get is the typed form of Cache.Get. A stored value of another type reads as absent.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// Size returns the number of stored entries, expired or not.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				slog.Debug("Cache cleanup", "evicted", n, "size", c.Size())
			}
		}
	}
}
