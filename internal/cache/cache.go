// Package cache memoizes per-index metrics for a fixed window so a UI
// refresh does not hammer the upstream providers.
package cache

import (
	"sync"
	"time"

	"IndexWatch/internal/model"
)

// Clock supplies the current time. Injected so tests can advance time
// deterministically instead of waiting out the TTL.
type Clock func() time.Time

// Cache holds computed metrics keyed by index until they expire.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]entry
}

type entry struct {
	metrics   model.Metrics
	expiresAt time.Time
}

// New creates a Cache. A nil clock defaults to time.Now.
func New(ttl time.Duration, now Clock) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached metrics for key if present and not expired.
func (c *Cache) Get(key string) (model.Metrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return model.Metrics{}, false
	}
	return e.metrics, true
}

// Set stores metrics for key with a fresh expiry.
func (c *Cache) Set(key string, m model.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{metrics: m, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops everything; used by the user-triggered force refresh.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
