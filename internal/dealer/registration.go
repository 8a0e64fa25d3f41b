package dealer

import (
	"math/rand"

	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/uri"
)

// InvocationPolicy selects which callee receives a CALL when a
// registration has more than one (spec.md §4.1, "Registration").
type InvocationPolicy int

const (
	InvocationSingle InvocationPolicy = iota
	InvocationRoundRobin
	InvocationRandom
	InvocationFirst
	InvocationLast
)

// Registration is one (uri, match-policy) procedure pattern and its
// current callee(s). Only Single forbids more than one callee; the
// other invocation policies allow several callees to join the same
// registration, exactly like broker subscriptions share one
// subscription-id.
type Registration struct {
	ID         uint64
	URI        string
	Policy     uri.MatchPolicy
	Invocation InvocationPolicy

	// ForwardTimeouts is the per_registration call-timeout-forwarding
	// flag requested at REGISTER time via the "forward_timeouts" option.
	ForwardTimeouts bool
	// DiscloseCallerRequested is the consumer-side disclosure flag
	// requested at REGISTER time via "disclose_caller".
	DiscloseCallerRequested bool

	callees  []*session.Session // join order
	rrCursor int
}

func newRegistration(id uint64, u string, policy uri.MatchPolicy, invocation InvocationPolicy) *Registration {
	return &Registration{ID: id, URI: u, Policy: policy, Invocation: invocation}
}

func (r *Registration) join(callee *session.Session) {
	for _, c := range r.callees {
		if c.ID == callee.ID {
			return
		}
	}
	r.callees = append(r.callees, callee)
}

func (r *Registration) leave(sessionID uint64) {
	for i, c := range r.callees {
		if c.ID == sessionID {
			r.callees = append(r.callees[:i], r.callees[i+1:]...)
			if r.rrCursor > i {
				r.rrCursor--
			}
			return
		}
	}
}

func (r *Registration) empty() bool { return len(r.callees) == 0 }

// Callees returns a snapshot of the registration's current callees in
// join order, for meta-API introspection (wamp.registration.callees).
func (r *Registration) Callees() []*session.Session {
	out := make([]*session.Session, len(r.callees))
	copy(out, r.callees)
	return out
}

// selectCallee picks a callee per the registration's invocation policy.
// Returns nil if there are no callees.
func (r *Registration) selectCallee() *session.Session {
	if len(r.callees) == 0 {
		return nil
	}
	switch r.Invocation {
	case InvocationFirst, InvocationSingle:
		return r.callees[0]
	case InvocationLast:
		return r.callees[len(r.callees)-1]
	case InvocationRandom:
		return r.callees[rand.Intn(len(r.callees))]
	case InvocationRoundRobin:
		c := r.callees[r.rrCursor%len(r.callees)]
		r.rrCursor = (r.rrCursor + 1) % len(r.callees)
		return c
	default:
		return r.callees[0]
	}
}
