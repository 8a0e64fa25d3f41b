// Package authexchange implements the HELLO↔CHALLENGE↔AUTHENTICATE
// handshake state held by a session while authenticating, per spec.md
// §4.4, grounded on cppwamp's AuthExchange/Authenticator
// (authenticator.hpp).
package authexchange

import (
	"context"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/wampproto"
)

// AuthInfo is the identity a successful authentication produces.
type AuthInfo struct {
	AuthID   string
	AuthRole string
	Method   string
	Provider string
	Extra    map[string]any
}

// OutcomeKind distinguishes the three things an Authenticator can do
// with an Exchange.
type OutcomeKind int

const (
	OutcomeChallenge OutcomeKind = iota
	OutcomeWelcome
	OutcomeReject
)

// Outcome is what the authenticator decided for one round.
type Outcome struct {
	Kind      OutcomeKind
	Challenge wampproto.Challenge // valid when Kind == OutcomeChallenge
	Info      AuthInfo            // valid when Kind == OutcomeWelcome
	Reason    string              // abort reason, valid when Kind == OutcomeReject
}

// Exchange holds the HELLO, the running challenge count, and an opaque
// note the authenticator can stash between rounds to remain stateless
// itself. A session constructs one Exchange per HELLO and runs it
// through one or more challenge/authenticate rounds.
type Exchange struct {
	Hello          wampproto.Hello
	challengeCount int
	note           any
	authentication wampproto.Authenticate
	outcomeCh      chan Outcome
}

// New creates an Exchange for the given HELLO.
func New(hello wampproto.Hello) *Exchange {
	return &Exchange{Hello: hello, outcomeCh: make(chan Outcome, 1)}
}

// ChallengeCount reports how many CHALLENGE messages have been sent.
func (ex *Exchange) ChallengeCount() int { return ex.challengeCount }

// Note returns the value stashed by the last Challenge call.
func (ex *Exchange) Note() any { return ex.note }

// SetAuthentication records the client's AUTHENTICATE message ahead of
// the next Authenticate round.
func (ex *Exchange) SetAuthentication(a wampproto.Authenticate) { ex.authentication = a }

// Authentication returns the most recently recorded AUTHENTICATE message.
func (ex *Exchange) Authentication() wampproto.Authenticate { return ex.authentication }

// Challenge sends a CHALLENGE to the client, storing note for the next
// round, and increments the challenge count.
func (ex *Exchange) Challenge(challenge wampproto.Challenge, note any) {
	ex.challengeCount++
	ex.note = note
	ex.outcomeCh <- Outcome{Kind: OutcomeChallenge, Challenge: challenge}
}

// Welcome finalizes authentication with the given identity.
func (ex *Exchange) Welcome(info AuthInfo) {
	ex.outcomeCh <- Outcome{Kind: OutcomeWelcome, Info: info}
}

// Reject denies authentication with the given abort reason URI.
func (ex *Exchange) Reject(reason string) {
	ex.outcomeCh <- Outcome{Kind: OutcomeReject, Reason: reason}
}

// Authenticator is the user-pluggable authentication decision interface.
// Implementations call exactly one of Exchange.Challenge, Exchange.Welcome,
// or Exchange.Reject per invocation of Authenticate.
type Authenticator interface {
	Authenticate(ex *Exchange)
}

// Run invokes auth.Authenticate for one round and waits for its outcome.
// If exec is non-nil, Authenticate runs posted on it (moving the
// authenticator off the session's own goroutine); otherwise it runs
// directly, per spec.md §4.4 ("If the authenticator was bound with an
// execution context, the router posts its callback there; otherwise it
// runs on the session's own context").
func Run(ctx context.Context, auth Authenticator, exec authorize.Executor, ex *Exchange) (Outcome, error) {
	if exec != nil {
		exec.Post(func() { auth.Authenticate(ex) })
	} else {
		auth.Authenticate(ex)
	}
	select {
	case o := <-ex.outcomeCh:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
