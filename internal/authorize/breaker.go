package authorize

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/wudi/wampd/internal/uri"
)

// Breaking wraps an Authorizer that calls out to something that can
// fail under load (a remote policy service behind Posting, typically)
// with a circuit breaker: once failures cross the configured
// threshold, Authorize fails fast with gobreaker.ErrOpenState instead
// of piling up blocked realm-strand goroutines behind a stuck
// dependency. Grounded on the teacher's internal/circuitbreaker.Breaker
// concept (closed/open/half-open protecting a flaky downstream call),
// rebuilt on the real gobreaker library rather than the teacher's
// hand-rolled state machine.
type Breaking struct {
	Inner Authorizer
	cb    *gobreaker.CircuitBreaker[Authorization]
}

// NewBreaking constructs a Breaking authorizer. settings.Name defaults
// to "authorize" if left empty.
func NewBreaking(inner Authorizer, settings gobreaker.Settings) *Breaking {
	if settings.Name == "" {
		settings.Name = "authorize"
	}
	return &Breaking{
		Inner: inner,
		cb:    gobreaker.NewCircuitBreaker[Authorization](settings),
	}
}

func (b *Breaking) Authorize(ctx context.Context, req Request) (Authorization, error) {
	return b.cb.Execute(func() (Authorization, error) {
		return b.Inner.Authorize(ctx, req)
	})
}

// UncacheSession, UncacheTopic, and UncacheProcedure forward to Inner
// when it implements CacheInvalidator, so wrapping an already-caching
// authorizer in a Breaking layer doesn't silently drop invalidation.
func (b *Breaking) UncacheSession(authID string) {
	if inv, ok := b.Inner.(CacheInvalidator); ok {
		inv.UncacheSession(authID)
	}
}

func (b *Breaking) UncacheTopic(u string, policy uri.MatchPolicy) {
	if inv, ok := b.Inner.(CacheInvalidator); ok {
		inv.UncacheTopic(u, policy)
	}
}

func (b *Breaking) UncacheProcedure(u string, policy uri.MatchPolicy) {
	if inv, ok := b.Inner.(CacheInvalidator); ok {
		inv.UncacheProcedure(u, policy)
	}
}

var _ Authorizer = (*Breaking)(nil)
