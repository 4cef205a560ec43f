package edinet

import (
	"sync"
	"time"
)

const (
	// DocumentListTTL is how long a day's filing index stays fresh
	DocumentListTTL = 24 * time.Hour

	// CompanyInfoTTL is how long a resolved ticker (including "not found") stays fresh
	CompanyInfoTTL = 24 * time.Hour
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// cacheEntry wraps a cached value with the time it was stored
type cacheEntry[V any] struct {
	timestamp time.Time
	value     V
}

// Cache is a process-wide memo with time-based staleness.
//
// Entries are never dropped on their own: a stale entry is simply ignored by
// Get until it is overwritten or evicted. There is no size bound.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
	ttl     time.Duration
	now     Clock
}

// NewCache creates an empty cache. A nil clock means time.Now.
func NewCache[V any](ttl time.Duration, clock Clock) *Cache[V] {
	if clock == nil {
		clock = time.Now
	}
	return &Cache[V]{
		entries: make(map[string]cacheEntry[V]),
		ttl:     ttl,
		now:     clock,
	}
}

// Get returns the value stored under key if it is still fresh
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().Sub(entry.timestamp) >= c.ttl {
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key, stamped with the current time
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{timestamp: c.now(), value: value}
	c.mu.Unlock()
}

// Evict removes key regardless of freshness
func (c *Cache[V]) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Timestamp reports when key was last stored
func (c *Cache[V]) Timestamp(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry.timestamp, ok
}

// Len returns the number of stored entries, fresh or stale
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
