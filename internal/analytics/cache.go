package analytics

import (
	"fmt"
	"sync"
	"time"
)

// ProspectCache caches top-prospect query results per agency with TTL.
type ProspectCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration

	hits    int64
	misses  int64
	evicted int64
}

type cacheEntry struct {
	prospects []*Prospect
	expiresAt time.Time
}

// NewProspectCache creates a cache with the given TTL.
func NewProspectCache(ttl time.Duration) *ProspectCache {
	return &ProspectCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func cacheKey(agencyID string, limit int) string {
	return fmt.Sprintf("%s:%d", agencyID, limit)
}

// Get returns cached prospects if present and fresh.
func (c *ProspectCache) Get(agencyID string, limit int) ([]*Prospect, bool) {
	c.mu.RLock()
	entry, exists := c.entries[cacheKey(agencyID, limit)]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		c.misses++
		if exists {
			delete(c.entries, cacheKey(agencyID, limit))
			c.evicted++
		}
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return entry.prospects, true
}

// Set stores a prospects result.
func (c *ProspectCache) Set(agencyID string, limit int, prospects []*Prospect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(agencyID, limit)] = &cacheEntry{
		prospects: prospects,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// InvalidateAgency drops all cached results for one agency. Called after a
// scoring run so prospects reflect the new snapshots immediately.
func (c *ProspectCache) InvalidateAgency(agencyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := agencyID + ":"
	for key := range c.entries {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			c.evicted++
		}
	}
}

// GetStats returns cache statistics.
func (c *ProspectCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"hits":        c.hits,
		"misses":      c.misses,
		"evicted":     c.evicted,
		"hit_rate":    hitRate,
		"ttl_seconds": c.ttl.Seconds(),
	}
}
