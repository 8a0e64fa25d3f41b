// Package authcache provides an optional Redis-backed store for
// authorization decisions, as a building block for deployments that
// want to share one realm's cache across multiple router processes.
// Per SPEC_FULL.md's OQ-1, nothing in this repository wires a Cache
// into a Realm automatically — internal/authorize.Caching's in-process
// LRU remains the default, and a Cache here is only consulted if a
// caller explicitly layers it in front of (or behind) that LRU.
package authcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/logging"
	"github.com/wudi/wampd/internal/uri"
)

// Cache is the authorization-decision store surface a Redis (or other
// external) backend provides. It mirrors internal/authorize.Caching's
// Lookup/Upsert/evict-by-scope operations, but keyed by a plain string
// so the backend needn't import the in-process LRU's generic type.
type Cache interface {
	Get(ctx context.Context, key string) (authorize.Authorization, bool)
	Set(ctx context.Context, key string, a authorize.Authorization)
	InvalidateSession(ctx context.Context, authID string)
	InvalidateTopic(ctx context.Context, u string, policy uri.MatchPolicy)
	InvalidateProcedure(ctx context.Context, u string, policy uri.MatchPolicy)
}

// Key builds the cache key for one authorize decision, scoped the same
// way internal/authorize.Caching's cacheKey is: auth identity plus the
// (uri, match-policy, action) triple.
func Key(authID, u string, policy uri.MatchPolicy, action authorize.Action) string {
	return fmt.Sprintf("authid:%s:uri:%s:policy:%d:action:%s", authID, u, int(policy), action)
}

// RedisCache is a Redis-backed Cache implementation, grounded on the
// teacher's internal/cache.RedisStore: a prefixed keyspace, a fixed
// TTL applied to every Set, and SCAN-based pattern deletion for the
// invalidation calls (Redis has no analogue to the in-process LRU's
// EvictIf predicate walk).
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed Cache. prefix should identify
// the realm, e.g. "wampd:authcache:realm1:".
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (authorize.Authorization, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn("authcache redis get failed, treating as miss", zap.Error(err))
		}
		return authorize.Authorization{}, false
	}

	var a authorize.Authorization
	if err := json.Unmarshal(data, &a); err != nil {
		logging.Warn("authcache redis decode failed, treating as miss", zap.Error(err))
		return authorize.Authorization{}, false
	}
	return a, true
}

func (c *RedisCache) Set(ctx context.Context, key string, a authorize.Authorization) {
	data, err := json.Marshal(a)
	if err != nil {
		logging.Warn("authcache redis encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		logging.Warn("authcache redis set failed", zap.Error(err))
	}
}

func (c *RedisCache) InvalidateSession(ctx context.Context, authID string) {
	c.scanAndDelete(ctx, fmt.Sprintf("%sauthid:%s:*", c.prefix, authID))
}

func (c *RedisCache) InvalidateTopic(ctx context.Context, u string, policy uri.MatchPolicy) {
	for _, action := range []authorize.Action{authorize.ActionSubscribe, authorize.ActionPublish} {
		c.scanAndDelete(ctx, fmt.Sprintf("%sauthid:*:uri:%s:policy:%d:action:%s", c.prefix, u, int(policy), action))
	}
}

func (c *RedisCache) InvalidateProcedure(ctx context.Context, u string, policy uri.MatchPolicy) {
	for _, action := range []authorize.Action{authorize.ActionRegister, authorize.ActionCall} {
		c.scanAndDelete(ctx, fmt.Sprintf("%sauthid:*:uri:%s:policy:%d:action:%s", c.prefix, u, int(policy), action))
	}
}

func (c *RedisCache) scanAndDelete(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			logging.Warn("authcache redis scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				logging.Warn("authcache redis bulk delete failed", zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

var _ Cache = (*RedisCache)(nil)
