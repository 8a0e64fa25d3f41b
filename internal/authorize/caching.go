package authorize

import (
	"context"
	"sync"

	"github.com/wudi/wampd/internal/lru"
	"github.com/wudi/wampd/internal/uri"
)

// cacheKey scopes a cached decision to the session's auth identity plus
// the (uri, match-policy, action) triple, per spec.md §4.8.
type cacheKey struct {
	authID string
	uri    string
	policy uri.MatchPolicy
	action Action
}

// Caching wraps another Authorizer with an LRU of past decisions. It is
// shared across realm strands (spec.md §5, "Shared resources"), so all
// access to the underlying cache is mutex-guarded here rather than
// relying on strand confinement.
type Caching struct {
	Inner Authorizer

	mu    sync.Mutex
	cache *lru.Cache[cacheKey, Authorization]
}

// NewCaching creates a Caching authorizer with the given cache capacity.
func NewCaching(inner Authorizer, capacity int) *Caching {
	return &Caching{Inner: inner, cache: lru.New[cacheKey, Authorization](capacity)}
}

func (c *Caching) Authorize(ctx context.Context, req Request) (Authorization, error) {
	key := cacheKey{authID: req.Session.AuthID, uri: req.URI, policy: req.Policy, action: req.Action}

	c.mu.Lock()
	if a, ok := c.cache.Lookup(key); ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	a, err := c.Inner.Authorize(ctx, req)
	if err == nil && req.Cache {
		c.mu.Lock()
		c.cache.Upsert(key, a)
		c.mu.Unlock()
	}
	return a, err
}

// UncacheSession drops every cached decision scoped to authID. Called by
// the realm on session leave.
func (c *Caching) UncacheSession(authID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.EvictIf(func(k cacheKey, _ Authorization) bool {
		return k.authID == authID
	})
}

// UncacheTopic drops cached subscribe/publish decisions for (uri, policy).
// Called by the realm after the last subscription on that pattern is
// removed.
func (c *Caching) UncacheTopic(u string, policy uri.MatchPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.EvictIf(func(k cacheKey, _ Authorization) bool {
		return k.uri == u && k.policy == policy && (k.action == ActionSubscribe || k.action == ActionPublish)
	})
}

// UncacheProcedure drops cached register/call decisions for (uri, policy).
// Called by the realm after the registration on that pattern is removed.
func (c *Caching) UncacheProcedure(u string, policy uri.MatchPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.EvictIf(func(k cacheKey, _ Authorization) bool {
		return k.uri == u && k.policy == policy && (k.action == ActionRegister || k.action == ActionCall)
	})
}
