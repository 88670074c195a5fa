package accesscontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PermissionCache stores resolved permission sets keyed by (user, context)
// in Redis. Every failure degrades to a miss or a no-op: a broken cache
// must never block or fail a permission check.
type PermissionCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// cacheEnvelope wraps one key's entries with its expiry. Expiry is
// all-or-nothing per key: a partially stale set is never served.
type cacheEnvelope struct {
	ComputedAt time.Time            `json:"computed_at"`
	ExpiresAt  time.Time            `json:"expires_at"`
	Entries    []ResolvedPermission `json:"entries"`
}

// NewPermissionCache creates a cache. A nil client yields a cache that
// always misses, which keeps the engine usable without Redis.
func NewPermissionCache(client *redis.Client, prefix string, ttl time.Duration, log *zap.SugaredLogger) *PermissionCache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PermissionCache{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *PermissionCache) key(userID uint, contextName string) string {
	return fmt.Sprintf("%sperm:%d:%s", c.prefix, userID, contextName)
}

// Get returns the cached entries for (user, context), or ok=false on a
// miss, an expired key, or any cache failure.
func (c *PermissionCache) Get(ctx context.Context, userID uint, contextName string) ([]ResolvedPermission, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(userID, contextName)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warnw("permission cache read failed", "user_id", userID, "context", contextName, "error", err)
		return nil, false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warnw("permission cache entry corrupt", "user_id", userID, "context", contextName, "error", err)
		return nil, false
	}
	if !time.Now().Before(env.ExpiresAt) {
		return nil, false
	}
	return env.Entries, true
}

// Put replaces all entries for (user, context). Write failures are logged
// and swallowed; the caller already holds the freshly computed set.
func (c *PermissionCache) Put(ctx context.Context, userID uint, contextName string, entries []ResolvedPermission) {
	if c.client == nil {
		return
	}

	now := time.Now()
	env := cacheEnvelope{
		ComputedAt: now,
		ExpiresAt:  now.Add(c.ttl),
		Entries:    entries,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		c.log.Warnw("permission cache encode failed", "user_id", userID, "context", contextName, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(userID, contextName), raw, c.ttl).Err(); err != nil {
		c.log.Warnw("permission cache write failed", "user_id", userID, "context", contextName, "error", err)
	}
}

// Invalidate drops every cached context for the user, regardless of TTL.
// Called synchronously by every grant/revoke/restore before its caller
// observes success.
func (c *PermissionCache) Invalidate(ctx context.Context, userID uint) {
	if c.client == nil {
		return
	}

	pattern := fmt.Sprintf("%sperm:%d:*", c.prefix, userID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.log.Warnw("permission cache invalidation scan failed", "user_id", userID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warnw("permission cache invalidation failed", "user_id", userID, "error", err)
	}
}

// InvalidateAll drops every cached permission set. Used after mutations
// that affect an unbounded set of users, such as deactivating a role.
func (c *PermissionCache) InvalidateAll(ctx context.Context) {
	if c.client == nil {
		return
	}

	keys, err := c.client.Keys(ctx, c.prefix+"perm:*").Result()
	if err != nil {
		c.log.Warnw("permission cache full invalidation scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warnw("permission cache full invalidation failed", "error", err)
	}
}

// Stats returns cache statistics for operational visibility.
func (c *PermissionCache) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"redis_enabled": c.client != nil,
		"ttl_minutes":   c.ttl.Minutes(),
	}
	if c.client == nil {
		return stats
	}

	if keys, err := c.client.Keys(ctx, c.prefix+"perm:*").Result(); err == nil {
		stats["cached_keys"] = len(keys)
	}
	return stats
}
