package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricequote/internal/fetcher"
)

// fakeClock is a manually advanced clock safe for concurrent reads
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCache_MissOnEmpty(t *testing.T) {
	c := New(time.Minute)
	_, ok := c.Get(Key{fetcher.Stock, "AAPL"})
	assert.False(t, ok)
}

func TestCache_HitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))
	key := Key{fetcher.Stock, "AAPL"}

	c.Put(key, fetcher.Some(178.23))
	clock.Advance(59 * time.Second)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, fetcher.Some(178.23), got)
}

func TestCache_ExpiresAtTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))
	key := Key{fetcher.Stock, "AAPL"}

	c.Put(key, fetcher.Some(178.23))
	clock.Advance(time.Minute)

	_, ok := c.Get(key)
	assert.False(t, ok, "age == TTL must be a miss")
	assert.Equal(t, 1, c.Len(), "stale entries are not deleted on read")
}

func TestCache_AbsentIsCached(t *testing.T) {
	c := New(time.Minute)
	key := Key{fetcher.Stock, "DELISTED"}

	c.Put(key, fetcher.Absent)

	got, ok := c.Get(key)
	require.True(t, ok, "a negative result is still a hit")
	assert.False(t, got.Valid())
}

func TestCache_PutResetsStoredAt(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now))
	key := Key{fetcher.Crypto, "BTC"}

	c.Put(key, fetcher.Some(1))
	clock.Advance(50 * time.Second)
	c.Put(key, fetcher.Some(2))
	clock.Advance(50 * time.Second)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, fetcher.Some(2), got)
}

func TestCache_KeyIncludesClass(t *testing.T) {
	c := New(time.Minute)
	c.Put(Key{fetcher.Crypto, "ETH"}, fetcher.Some(3000))

	_, ok := c.Get(Key{fetcher.Stock, "ETH"})
	assert.False(t, ok)
	assert.Equal(t, "crypto:ETH", Key{fetcher.Crypto, "ETH"}.String())
}

func TestCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New(0).TTL())
	assert.Equal(t, 5*time.Second, New(5*time.Second).TTL())
}

func TestCache_MaxEntriesEvictsStaleThenOldest(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Minute, WithClock(clock.Now), WithMaxEntries(2))

	c.Put(Key{fetcher.Stock, "A"}, fetcher.Some(1))
	clock.Advance(2 * time.Minute) // A is stale
	c.Put(Key{fetcher.Stock, "B"}, fetcher.Some(2))
	clock.Advance(time.Second)
	c.Put(Key{fetcher.Stock, "C"}, fetcher.Some(3))

	assert.Equal(t, 2, c.Len())
	_, okB := c.Get(Key{fetcher.Stock, "B"})
	_, okC := c.Get(Key{fetcher.Stock, "C"})
	assert.True(t, okB)
	assert.True(t, okC)

	clock.Advance(time.Second)
	c.Put(Key{fetcher.Stock, "D"}, fetcher.Some(4))

	assert.Equal(t, 2, c.Len())
	_, okB = c.Get(Key{fetcher.Stock, "B"})
	assert.False(t, okB, "oldest entry should be evicted")

	// overwriting an existing key never evicts
	c.Put(Key{fetcher.Stock, "C"}, fetcher.Some(5))
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentDistinctKeys(t *testing.T) {
	c := New(time.Minute)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key{fetcher.Stock, fmt.Sprintf("SYM%d", i)}
			c.Put(key, fetcher.Some(float64(i)))
			c.Get(key)
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, c.Len())
	for i := 0; i < n; i++ {
		got, ok := c.Get(Key{fetcher.Stock, fmt.Sprintf("SYM%d", i)})
		require.True(t, ok)
		assert.Equal(t, fetcher.Some(float64(i)), got)
	}
}
