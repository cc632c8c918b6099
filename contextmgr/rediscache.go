package contextmgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fleetforge/orchestrator/orchcore"
)

// RedisBundleCache is an optional L2 behind BundleCache's in-process LRU,
// mirroring the teacher's pkg/memory.RedisMemory: a shared cache surviving
// process restarts and visible across replicas of the orchestrator, at the
// cost of a network round trip on every miss. Tenant invalidation is
// tracked with a per-tenant Redis set of keys rather than SCAN, since
// SCAN's guarantees are too loose for a security-sensitive invalidation
// path (spec §4.4 cache policy, I1).
type RedisBundleCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisBundleCache wraps an existing redis.Client. keyPrefix namespaces
// keys so the context-bundle cache can share a Redis instance with other
// consumers.
func NewRedisBundleCache(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisBundleCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTLSeconds * time.Second
	}
	if keyPrefix == "" {
		keyPrefix = "ctxbundle"
	}
	return &RedisBundleCache{client: client, ttl: ttl, prefix: keyPrefix}
}

func (c *RedisBundleCache) bundleKey(key string) string {
	return c.prefix + ":bundle:" + key
}

func (c *RedisBundleCache) tenantIndexKey(tenantID string) string {
	return c.prefix + ":tenant:" + tenantID
}

// Get returns the cached bundle for key, if present and unexpired. A Redis
// transport error is treated as a cache miss: the cache is an optimization,
// never a hard dependency for answering a request.
func (c *RedisBundleCache) Get(ctx context.Context, key string) (Bundle, bool) {
	raw, err := c.client.Get(ctx, c.bundleKey(key)).Bytes()
	if err != nil {
		return Bundle{}, false
	}
	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return Bundle{}, false
	}
	bundle.CacheHit = true
	return bundle, true
}

// Set stores bundle under key with the cache's TTL and records key against
// tenantID's invalidation index.
func (c *RedisBundleCache) Set(ctx context.Context, key, tenantID string, bundle Bundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return orchcore.NewFrameworkError("RedisBundleCache.Set", "transport", err)
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.bundleKey(key), raw, c.ttl)
	pipe.SAdd(ctx, c.tenantIndexKey(tenantID), key)
	pipe.Expire(ctx, c.tenantIndexKey(tenantID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return orchcore.NewFrameworkError("RedisBundleCache.Set", "transport", err)
	}
	return nil
}

// InvalidateTenant removes every cached bundle recorded against tenantID's
// index (spec §4.4 cache policy: invalidateTenant).
func (c *RedisBundleCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	indexKey := c.tenantIndexKey(tenantID)
	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return orchcore.NewFrameworkError("RedisBundleCache.InvalidateTenant", "transport", err)
	}
	if len(keys) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, c.bundleKey(key))
	}
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return orchcore.NewFrameworkError("RedisBundleCache.InvalidateTenant", "transport", err)
	}
	return nil
}
