// Package cache provides a bounded TTL cache for serialized search
// responses, keyed by the normalized query.
package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// ResponseCache is an LRU-evicting map with per-entry expiry. Expired
// entries are dropped lazily on read; at capacity the least recently
// accessed entry makes room. A nil *ResponseCache is valid and caches
// nothing, which is how "cache disabled" is represented.
type ResponseCache struct {
	mu          sync.RWMutex
	entries     map[string]entry
	accessTime  map[string]int64
	accessCount int64
	maxEntries  int
	ttl         time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// New returns a cache holding up to maxEntries bodies for ttl each.
func New(maxEntries int, ttl time.Duration) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ResponseCache{
		entries:    make(map[string]entry, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached body for key. The second return reports whether a
// live entry was found; expired entries are removed on the way.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		delete(c.accessTime, key)
		c.misses++
		return nil, false
	}
	c.markAccessed(key)
	c.hits++
	return e.body, true
}

// Set stores body under key, evicting the least recently accessed entry if
// the cache is full. The return reports whether an eviction happened, so
// callers can count them.
func (c *ResponseCache) Set(key string, body []byte) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := false
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		evicted = c.evictOldest()
	}
	c.entries[key] = entry{body: body, expiresAt: time.Now().Add(c.ttl)}
	c.markAccessed(key)
	return evicted
}

// Len reports the number of stored entries, live or not yet reaped.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns counters for logging and metrics scrapes.
func (c *ResponseCache) Stats() map[string]int64 {
	if c == nil {
		return map[string]int64{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int64{
		"entries":   int64(len(c.entries)),
		"capacity":  int64(c.maxEntries),
		"hits":      c.hits,
		"misses":    c.misses,
		"evictions": c.evictions,
	}
}

func (c *ResponseCache) markAccessed(key string) {
	c.accessCount++
	c.accessTime[key] = c.accessCount
}

func (c *ResponseCache) evictOldest() bool {
	var oldestKey string
	var oldestTime int64 = 1<<63 - 1

	for key, at := range c.accessTime {
		if at < oldestTime {
			oldestTime = at
			oldestKey = key
		}
	}
	if oldestKey == "" {
		return false
	}
	delete(c.entries, oldestKey)
	delete(c.accessTime, oldestKey)
	c.evictions++
	log.Debugf("Evicted '%s' from response cache", oldestKey)
	return true
}
