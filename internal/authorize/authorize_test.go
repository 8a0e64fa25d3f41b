package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/wampd/internal/uri"
)

func TestDefaultGrantsEverything(t *testing.T) {
	a, err := Default{}.Authorize(context.Background(), Request{Action: ActionCall})
	if err != nil || !a.Allowed {
		t.Fatalf("expected allowed, got %v %v", a, err)
	}
}

type syncExecutor struct{}

func (syncExecutor) Post(f func()) { f() }

func TestPostingDelegatesAndReturns(t *testing.T) {
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		return Authorization{Allowed: req.URI == "ok"}, nil
	})
	p := &Posting{Inner: inner, Exec: syncExecutor{}}

	a, err := p.Authorize(context.Background(), Request{URI: "ok"})
	if err != nil || !a.Allowed {
		t.Fatalf("expected allowed, got %v %v", a, err)
	}
	a2, err := p.Authorize(context.Background(), Request{URI: "nope"})
	if err != nil || a2.Allowed {
		t.Fatalf("expected denied, got %v %v", a2, err)
	}
}

func TestPostingHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		<-block
		return Authorization{Allowed: true}, nil
	})
	var posted func()
	p := &Posting{Inner: inner, Exec: executorFunc(func(f func()) { posted = f })}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Authorize(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(block)
	_ = posted
}

type executorFunc func(func())

func (e executorFunc) Post(f func()) { e(f) }

func TestCachingHitAndMiss(t *testing.T) {
	calls := 0
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		calls++
		return Authorization{Allowed: true}, nil
	})
	c := NewCaching(inner, 10)
	req := Request{Action: ActionCall, Session: Identity{AuthID: "alice"}, URI: "com.x", Policy: uri.MatchExact, Cache: true}

	if _, err := c.Authorize(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Authorize(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected inner called once (second hit cached), got %d", calls)
	}
}

func TestCachingSkipsStoreWithoutCacheFlag(t *testing.T) {
	calls := 0
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		calls++
		return Authorization{Allowed: true}, nil
	})
	c := NewCaching(inner, 10)
	req := Request{Action: ActionCall, Session: Identity{AuthID: "alice"}, URI: "com.x", Policy: uri.MatchExact, Cache: false}

	c.Authorize(context.Background(), req)
	c.Authorize(context.Background(), req)
	if calls != 2 {
		t.Fatalf("expected inner called every time without Cache flag, got %d", calls)
	}
}

func TestUncacheSession(t *testing.T) {
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		return Authorization{Allowed: true}, nil
	})
	c := NewCaching(inner, 10)
	req := Request{Action: ActionCall, Session: Identity{AuthID: "alice"}, URI: "com.x", Policy: uri.MatchExact, Cache: true}
	c.Authorize(context.Background(), req)
	c.UncacheSession("alice")

	calls := 0
	c.Inner = FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		calls++
		return Authorization{Allowed: true}, nil
	})
	c.Authorize(context.Background(), req)
	if calls != 1 {
		t.Fatal("expected cache evicted, inner re-invoked")
	}
}

func TestUncacheTopicAndProcedureScoping(t *testing.T) {
	inner := FuncAuthorizer(func(ctx context.Context, req Request) (Authorization, error) {
		return Authorization{Allowed: true}, nil
	})
	c := NewCaching(inner, 10)
	subReq := Request{Action: ActionSubscribe, Session: Identity{AuthID: "a"}, URI: "t", Policy: uri.MatchExact, Cache: true}
	callReq := Request{Action: ActionCall, Session: Identity{AuthID: "a"}, URI: "t", Policy: uri.MatchExact, Cache: true}
	c.Authorize(context.Background(), subReq)
	c.Authorize(context.Background(), callReq)

	c.UncacheTopic("t", uri.MatchExact)

	if _, ok := c.cache.Lookup(cacheKey{authID: "a", uri: "t", policy: uri.MatchExact, action: ActionSubscribe}); ok {
		t.Fatal("expected subscribe decision evicted by UncacheTopic")
	}
	if _, ok := c.cache.Lookup(cacheKey{authID: "a", uri: "t", policy: uri.MatchExact, action: ActionCall}); !ok {
		t.Fatal("expected call decision untouched by UncacheTopic")
	}
}

func TestErrorReplyKnownURI(t *testing.T) {
	uriName, args := ErrorReply(Authorization{ErrorKind: ErrorAuthorizationDenied}, nil)
	if uriName != ErrorAuthorizationDenied || args != nil {
		t.Fatalf("expected known URI passthrough, got %s %v", uriName, args)
	}
}

func TestErrorReplyUnknownCodeFallsBackToAuthorizationFailed(t *testing.T) {
	uriName, args := ErrorReply(Authorization{ErrorKind: "some_custom_code"}, nil)
	if uriName != ErrorAuthorizationFailed {
		t.Fatalf("expected authorization_failed, got %s", uriName)
	}
	if len(args) != 2 || args[0] != "some_custom_code" {
		t.Fatalf("expected code as first positional arg, got %v", args)
	}
}

func TestErrorReplyDefaultDenied(t *testing.T) {
	uriName, _ := ErrorReply(Authorization{}, nil)
	if uriName != ErrorAuthorizationDenied {
		t.Fatalf("expected authorization_denied default, got %s", uriName)
	}
}

func TestErrorReplyCallError(t *testing.T) {
	uriName, args := ErrorReply(Authorization{}, errors.New("boom"))
	if uriName != ErrorAuthorizationFailed {
		t.Fatalf("expected authorization_failed on call error, got %s", uriName)
	}
	if len(args) != 2 {
		t.Fatalf("expected two positional args, got %v", args)
	}
}
