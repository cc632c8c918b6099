package contextmgr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStats mirrors the routing cache's observability shape (hit rate,
// evictions) generalized from routing plans to context bundles.
type CacheStats struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type bundleCacheEntry struct {
	bundle    Bundle
	tenantID  string
	expiresAt time.Time
}

// BundleCache is a keyed TTL+LRU cache over assembled Bundles, generalizing
// the routing engine's SimpleCache/LRUCache pair onto
// github.com/hashicorp/golang-lru/v2 for the underlying eviction policy,
// with an explicit TTL layered on top and a tenant-scoped invalidation
// sweep (spec §4.4 cache policy).
type BundleCache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, *bundleCacheEntry]
	ttl   time.Duration
	stats CacheStats
}

// NewBundleCache builds a cache bounded to capacity entries, each living
// for ttl before being treated as a miss.
func NewBundleCache(capacity int, ttl time.Duration) *BundleCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTLSeconds * time.Second
	}
	c, _ := lru.New[string, *bundleCacheEntry](capacity)
	return &BundleCache{lru: c, ttl: ttl}
}

// Key computes the stable cache key for a Request, per spec §4.4 step 1:
// a hash of (tenantId, query, agentType, include, projectId, taskId).
func Key(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%t|%t|%t",
		req.TenantID, req.Query, req.AgentType, req.ProjectID, req.TaskID,
		req.Include.Lessons, req.Include.Code, req.Include.History)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bundle for key, if present and unexpired.
func (c *BundleCache) Get(key string) (Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return Bundle{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		c.stats.Misses++
		c.stats.Evictions++
		return Bundle{}, false
	}
	c.stats.Hits++
	bundle := entry.bundle
	bundle.CacheHit = true
	return bundle, true
}

// Set stores bundle under key, scoped to tenantID so InvalidateTenant can
// find it later.
func (c *BundleCache) Set(key, tenantID string, bundle Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &bundleCacheEntry{
		bundle:    bundle,
		tenantID:  tenantID,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.stats.Size = c.lru.Len()
}

// InvalidateTenant removes every cached entry belonging to tenantID (spec
// §4.4 cache policy: invalidateTenant).
func (c *BundleCache) InvalidateTenant(tenantID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []string
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if ok && entry.tenantID == tenantID {
			toRemove = append(toRemove, key)
		}
	}
	for _, key := range toRemove {
		c.lru.Remove(key)
	}
	c.stats.Size = c.lru.Len()
	return len(toRemove)
}

// Clear empties the cache entirely.
func (c *BundleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.stats.Size = 0
}

// Stats returns a snapshot of cache performance counters.
func (c *BundleCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Size = c.lru.Len()
	return stats
}

