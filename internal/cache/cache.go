// Package cache provides the key-value cache abstraction used for contact and
// enrolment lookups. The client takes the interface so hosts can plug in a
// shared store; the in-memory implementation here covers single-process use.
package cache

import (
	"sync"
	"time"
)

// Cache is a TTL-bounded key-value store for resolved remote IDs.
type Cache interface {
	// Get returns the cached value for key and whether it was present and
	// not yet expired.
	Get(key string) (int64, bool)

	// Set stores value under key for the given lifetime. A non-positive ttl
	// stores the value without expiry.
	Set(key string, value int64, ttl time.Duration)
}

type entry struct {
	value     int64
	expiresAt time.Time
}

// inMemoryCache implements Cache with a mutex-guarded map. Expired entries
// are dropped lazily on read.
type inMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewInMemory creates an empty in-memory cache.
func NewInMemory() Cache {
	return &inMemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *inMemoryCache) Get(key string) (int64, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}

	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry in the meantime.
		if cur, ok := c.entries[key]; ok && !cur.expiresAt.IsZero() && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return 0, false
	}

	return e.value, true
}

func (c *inMemoryCache) Set(key string, value int64, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}
