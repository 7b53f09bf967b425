// Package cache keeps the last resolved price per (asset class, symbol) for a
// short freshness window.
package cache

import (
	"sync"
	"time"

	"pricequote/internal/fetcher"
)

// DefaultTTL is how long a resolved price is served without asking providers
const DefaultTTL = 60 * time.Second

// Key identifies a cached price
type Key struct {
	Class  fetcher.AssetClass
	Symbol string
}

// String renders the key as "class:SYMBOL"
func (k Key) String() string {
	return string(k.Class) + ":" + k.Symbol
}

// entry stores a price, possibly Absent, and when it was stored
type entry struct {
	price    fetcher.Price
	storedAt time.Time
}

// Cache is a concurrency-safe TTL map. Expiry is checked when reading;
// stale entries stay in place until overwritten or evicted by the size bound.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.RWMutex
	entries map[Key]entry
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMaxEntries bounds the number of stored keys. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// New creates a cache whose entries are fresh for ttl. A non-positive ttl
// uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the stored price for key while it is younger than the TTL.
// The boolean is false on a miss, whether the key was never stored or has
// gone stale.
func (c *Cache) Get(key Key) (fetcher.Price, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return fetcher.Absent, false
	}
	return e.price, true
}

// Put stores price for key, overwriting any previous entry and restarting
// its freshness window
func (c *Cache) Put(key Key, price fetcher.Price) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = entry{price: price, storedAt: now}
}

// Len returns the number of stored entries, stale ones included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked makes room for one entry: stale entries go first, then the
// oldest ones. Callers hold c.mu.
func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}

	for len(c.entries) >= c.maxEntries {
		var (
			oldestKey Key
			oldestAt  time.Time
			found     bool
		)
		for k, e := range c.entries {
			if !found || e.storedAt.Before(oldestAt) {
				oldestKey, oldestAt, found = k, e.storedAt, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, oldestKey)
	}
}
