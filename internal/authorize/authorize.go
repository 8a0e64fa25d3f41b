// Package authorize implements the WAMP authorizer chain: a pluggable
// decision interface plus Default, Posting, and Caching wrapper variants,
// per spec.md §4.8. It also converts a denied Authorization into the
// error-reply fields the broker/dealer should send back to the caller.
package authorize

import (
	"context"

	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/uri"
)

// Action identifies which of the four authorize operations a Request is
// for: subscribing to a topic, publishing to a topic, registering a
// procedure, or calling a procedure.
type Action int

const (
	ActionSubscribe Action = iota
	ActionPublish
	ActionRegister
	ActionCall
)

func (a Action) String() string {
	switch a {
	case ActionSubscribe:
		return "subscribe"
	case ActionPublish:
		return "publish"
	case ActionRegister:
		return "register"
	case ActionCall:
		return "call"
	default:
		return "unknown"
	}
}

// Identity is the minimal caller identity an authorizer decides against.
// It is a narrow projection of session state, kept free of a dependency
// on internal/session so this package stays a leaf.
type Identity struct {
	SessionID uint64
	AuthID    string
	AuthRole  string
}

// Request is one authorization decision to make.
type Request struct {
	Action   Action
	Session  Identity
	URI      string
	Policy   uri.MatchPolicy
	Options  map[string]any
	// Cache, when true, tells a CachingAuthorizer the caller wants this
	// decision cached for reuse on subsequent identical requests.
	Cache bool
}

// Authorization is the result of a single authorize decision.
type Authorization struct {
	Allowed    bool
	Disclosure disclosure.Policy
	ErrorKind  string
}

// Authorizer is the single polymorphic decision surface; Default,
// Posting, Caching, and user-supplied implementations all satisfy it.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Authorization, error)
}

// CacheInvalidator is implemented by authorizer variants (Caching) that
// maintain decision state needing eviction when the realm reports a
// session leaving or a subscription/registration disappearing. Variants
// that don't cache (Default, a bare user-supplied authorizer) need not
// implement it; the realm type-asserts before calling.
type CacheInvalidator interface {
	UncacheSession(authID string)
	UncacheTopic(uri string, policy uri.MatchPolicy)
	UncacheProcedure(uri string, policy uri.MatchPolicy)
}

// FuncAuthorizer adapts a plain function to the Authorizer interface, for
// user-supplied authorizers that don't need their own named type.
type FuncAuthorizer func(ctx context.Context, req Request) (Authorization, error)

func (f FuncAuthorizer) Authorize(ctx context.Context, req Request) (Authorization, error) {
	return f(ctx, req)
}

// Default grants every request unconditionally.
type Default struct{}

func (Default) Authorize(context.Context, Request) (Authorization, error) {
	return Authorization{Allowed: true}, nil
}

// Known WAMP authorization error URIs, per spec.md §4.8. Full wire
// URIs, not bare suffixes, so the ERROR sent to the caller matches
// what a real WAMP client checks against.
const (
	ErrorAuthorizationDenied   = "wamp.error.authorization_denied"
	ErrorAuthorizationFailed   = "wamp.error.authorization_failed"
	ErrorAuthorizationRequired = "wamp.error.authorization_required"
	ErrorDiscloseMeDisallowed  = "wamp.error.disclose_me_disallowed"
)

var knownErrorURIs = map[string]bool{
	ErrorAuthorizationDenied:   true,
	ErrorAuthorizationFailed:   true,
	ErrorAuthorizationRequired: true,
	ErrorDiscloseMeDisallowed:  true,
}

// ErrorReply resolves the ERROR fields to send back for a denied
// Authorization or a failed authorize call. If the Authorization's
// ErrorKind is one of the known URIs it is used as-is with no payload;
// an empty ErrorKind yields authorization_denied with no payload; any
// other ErrorKind (or a non-nil callErr) falls back to
// authorization_failed with two positional arguments: a brief code
// string and the failure message.
func ErrorReply(a Authorization, callErr error) (wampURI string, args []any) {
	if callErr != nil {
		return ErrorAuthorizationFailed, []any{"internal_error", callErr.Error()}
	}
	if a.ErrorKind != "" && knownErrorURIs[a.ErrorKind] {
		return a.ErrorKind, nil
	}
	if a.ErrorKind != "" {
		return ErrorAuthorizationFailed, []any{a.ErrorKind, "authorization denied for unrecognized reason"}
	}
	return ErrorAuthorizationDenied, nil
}
