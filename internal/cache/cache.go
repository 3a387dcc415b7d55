// Package cache holds short-lived values keyed by string.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiry    time.Time
	insertIdx int64
}

// TTL caches values for a fixed duration. When full, the oldest insert is
// evicted. Safe for concurrent use.
type TTL[V any] struct {
	mu         sync.RWMutex
	items      map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a cache with the given TTL and max entry count.
func New[V any](ttl time.Duration, maxEntries int) *TTL[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &TTL[V]{
		items:      make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a value if found and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiry) {
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores a value, replacing any existing entry for key.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{value: value, expiry: c.now().Add(c.ttl), insertIdx: c.nextIdx}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = e
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest must be called with mu held.
func (c *TTL[V]) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1
	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
