// Package cache implements an in-memory TTL cache keyed by volatility class.
// Expiry is lazy on read, with an optional background sweeper for memory
// reclamation, and concurrent misses for the same key are collapsed into a
// single upstream computation.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Hints describe the subject a value was derived from, letting the cache
// adjust the class TTL: fast-moving papers refresh sooner, dormant ones
// later.
type Hints struct {
	// HighVelocity marks a paper whose citation velocity is spiking.
	HighVelocity bool
	// Stable marks an old paper whose signals have stopped moving.
	Stable bool
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Shared    uint64 `json:"shared"` // lookups served by an in-flight computation
	Entries   int    `json:"entries"`
}

type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

// Cache is a thread-safe TTL + LRU cache. The zero value is not usable; use
// New.
type Cache struct {
	mu       sync.Mutex
	ttls     TTLTable
	maxItems int
	entries  map[string]*entry
	order    []string // oldest access first
	stats    Stats
	now      func() time.Time

	flight singleflight.Group
}

// New creates a cache with the given TTL table and entry cap. If maxItems
// <= 0, it defaults to 4096.
func New(ttls TTLTable, maxItems int) (*Cache, error) {
	if err := ttls.Validate(); err != nil {
		return nil, err
	}
	if maxItems <= 0 {
		maxItems = 4096
	}
	return &Cache{
		ttls:     ttls,
		maxItems: maxItems,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}, nil
}

// Key builds the canonical cache key for a class and identifier.
func Key(class Class, id string) string {
	return string(class) + ":" + id
}

// Get retrieves a live value and its age. An expired entry is removed and
// reported as a miss; callers never observe stale data.
func (c *Cache) Get(key string) (any, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, 0, false
	}

	now := c.now()
	if !now.Before(e.expiresAt) {
		c.removeLocked(key)
		c.stats.Misses++
		return nil, 0, false
	}

	c.moveToEnd(key)
	c.stats.Hits++
	return e.value, now.Sub(e.storedAt), true
}

// peek is Get without the hit/miss accounting, for internal re-checks that
// belong to a lookup already counted.
func (c *Cache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Put stores a value under its class TTL, evicting the least recently used
// entries if the cache is full.
func (c *Cache) Put(class Class, id string, value any) {
	c.PutWithHints(class, id, value, Hints{})
}

// PutWithHints stores a value with a TTL adjusted for the subject: halved
// for high-velocity papers, doubled for stable ones. Contradictory hints
// cancel out.
func (c *Cache) PutWithHints(class Class, id string, value any, hints Hints) {
	ttl := c.ttls[class]
	if hints.HighVelocity {
		ttl /= 2
	}
	if hints.Stable {
		ttl *= 2
	}

	key := Key(class, id)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &entry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
		c.moveToEnd(key)
		return
	}

	for len(c.entries) >= c.maxItems && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.stats.Evictions++
	}

	c.entries[key] = &entry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
	c.order = append(c.order, key)
}

// GetOrCompute returns the cached value for (class, id), or runs compute to
// fill it. Concurrent callers for the same key share one computation; a
// compute error is returned to every waiter and nothing is cached.
// Cancellation of ctx releases the caller without stopping the shared
// computation, so other waiters can still receive its result.
func (c *Cache) GetOrCompute(ctx context.Context, class Class, id string, compute func(context.Context) (any, error)) (any, error) {
	key := Key(class, id)
	if v, _, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		// Re-check under the flight: a concurrent Put may have landed
		// between the miss and the flight starting. peek keeps the
		// already-counted miss from being counted twice.
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Put(class, id, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.mu.Lock()
			c.stats.Shared++
			c.mu.Unlock()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes a single entry. It reports whether the entry existed.
func (c *Cache) Invalidate(class Class, id string) bool {
	key := Key(class, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeLocked(key)
	return true
}

// InvalidateClass removes every entry in a class and returns the count.
func (c *Cache) InvalidateClass(class Class) int {
	prefix := string(class) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Sweep removes entries expired for longer than grace and returns the count.
// The grace period keeps recently expired entries available for age
// inspection by diagnostics before they are reclaimed.
func (c *Cache) Sweep(grace time.Duration) int {
	cutoff := c.now().Add(-grace)
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.expiresAt.Before(cutoff) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (c *Cache) RunSweeper(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(grace)
		}
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
