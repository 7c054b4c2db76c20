// Package cache provides a small in-memory TTL cache used to avoid
// re-rendering reports between ticks.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// ReportCache stores rendered payloads with per-entry TTL.
type ReportCache struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

// NewReportCache creates an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{data: make(map[string]entry), now: time.Now}
}

// Get retrieves a cached payload if present and not expired.
func (c *ReportCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !it.expiresAt.IsZero() && c.now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

// Set stores a payload with optional TTL (zero keeps it until replaced).
func (c *ReportCache) Set(key string, value []byte, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: value, expiresAt: expires}
}

// Delete removes an entry.
func (c *ReportCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
