package agenda

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result    Result
	updatedAt time.Time
}

// Cache memoizes built agendas per window for a fixed TTL.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached result for w if it is younger than the TTL.
func (c *Cache) Get(w Window) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[w.key()]
	if !ok || c.now().Sub(e.updatedAt) >= c.ttl {
		return Result{}, false
	}
	return e.result, true
}

// Put stores r and drops expired entries.
func (c *Cache) Put(w Window, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.updatedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[w.key()] = cacheEntry{result: r, updatedAt: now}
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
