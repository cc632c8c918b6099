package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type planCacheEntry struct {
	decision  Decision
	expiresAt time.Time
}

// PlanCache caches the parsed Decision for a given ThinkingContext, so an
// identical situation (same prompt, same completed agents, same style
// state) doesn't re-ask the LLM within the TTL window. Same
// capacity-bounded LRU + explicit TTL shape as the routing engine's
// RoutingCache, generalized from prompt strings to full thinking
// contexts.
type PlanCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *planCacheEntry]
	ttl time.Duration
}

// NewPlanCache builds a PlanCache bounded to capacity entries.
func NewPlanCache(capacity int, ttl time.Duration) *PlanCache {
	if capacity <= 0 {
		capacity = 200
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	c, _ := lru.New[string, *planCacheEntry](capacity)
	return &PlanCache{lru: c, ttl: ttl}
}

// CacheKey hashes the fields of ThinkingContext relevant to decision
// determinism.
func CacheKey(ctx ThinkingContext) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%t|%t|%s",
		ctx.Prompt, ctx.TaskClassification, strings.Join(ctx.CompletedAgents, ","),
		ctx.DesignPhase, ctx.SelectedStyleID, ctx.StylesheetApproved, ctx.ScreensApproved,
		strings.Join(ctx.StylePackages, ","))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached decision for key, if present and unexpired.
func (c *PlanCache) Get(key string) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lru.Get(key)
	if !ok {
		return Decision{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return Decision{}, false
	}
	return entry.decision, true
}

// Set stores decision under key.
func (c *PlanCache) Set(key string, decision Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &planCacheEntry{decision: decision, expiresAt: time.Now().Add(c.ttl)})
}

// Clear empties the cache.
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
