// Package session implements the per-connection Session entity and its
// establishing→authenticating→established→shutting-down→closed/failed
// state machine, per spec.md §4.1/§4.4.
package session

import (
	"sync/atomic"

	"github.com/wudi/wampd/internal/authexchange"
	"github.com/wudi/wampd/internal/feature"
	"github.com/wudi/wampd/internal/wampproto"
)

// Transport is the owning connection handle a Session writes outbound
// messages to and can close. Concrete implementations live in
// transport/ (out of this package's scope per spec.md §1).
type Transport interface {
	Send(msg wampproto.Message) error
	Close(reason string) error
}

// AuthInfo is the session's resolved identity, set on WELCOME.
type AuthInfo = authexchange.AuthInfo

// Session is one realm-joined (or joining) connection.
type Session struct {
	ID        uint64
	RealmURI  string
	Agent     string
	Auth      AuthInfo
	Features  feature.ClientRoles
	Transport Transport

	state wampproto.State

	// calleeRequestID is the monotonic counter the router draws from
	// when it assigns a fresh request-id to an INVOCATION forwarded to
	// this session as a callee. Replies to requests this session
	// originates (REGISTERED/SUBSCRIBED/etc.) correlate to the
	// request-id the session itself submitted, so no counter is kept
	// for that direction.
	calleeRequestID uint64
}

// New creates a Session bound to transport, in the establishing state.
func New(id uint64, transport Transport) *Session {
	return &Session{ID: id, Transport: transport, state: wampproto.StateEstablishing}
}

// State returns the session's current lifecycle state.
func (s *Session) State() wampproto.State { return s.state }

// NextCalleeRequestID allocates the next request-id the router assigns
// when forwarding an INVOCATION to this session as callee.
func (s *Session) NextCalleeRequestID() uint64 {
	return atomic.AddUint64(&s.calleeRequestID, 1)
}

// transition table: keys are "from" states, values the set of "to"
// states reachable directly. Used by advance to reject impossible
// transitions rather than trusting every caller.
var allowedTransitions = map[wampproto.State]map[wampproto.State]bool{
	wampproto.StateEstablishing: {
		wampproto.StateAuthenticating: true,
		wampproto.StateEstablished:    true,
		wampproto.StateShuttingDown:   true,
		wampproto.StateFailed:         true,
	},
	wampproto.StateAuthenticating: {
		wampproto.StateEstablished:  true,
		wampproto.StateShuttingDown: true,
		wampproto.StateFailed:       true,
	},
	wampproto.StateEstablished: {
		wampproto.StateShuttingDown: true,
		wampproto.StateFailed:       true,
	},
	wampproto.StateShuttingDown: {
		wampproto.StateClosed: true,
		wampproto.StateFailed: true,
	},
}

// ErrInvalidTransition is returned by advance when the requested state
// change isn't reachable from the session's current state.
type ErrInvalidTransition struct {
	From, To wampproto.State
}

func (e *ErrInvalidTransition) Error() string {
	return "session: invalid transition from " + e.From.String() + " to " + e.To.String()
}

func (s *Session) advance(to wampproto.State) error {
	if s.state == to {
		return nil
	}
	if next, ok := allowedTransitions[s.state]; ok && next[to] {
		s.state = to
		return nil
	}
	return &ErrInvalidTransition{From: s.state, To: to}
}

// OnChallenge moves an establishing session to authenticating, once the
// configured Authenticator has issued a CHALLENGE.
func (s *Session) OnChallenge() error { return s.advance(wampproto.StateAuthenticating) }

// OnWelcome finalizes the session: records the resolved identity,
// agent, and negotiated features, and moves to established.
func (s *Session) OnWelcome(auth AuthInfo, agent string, features feature.ClientRoles) error {
	if err := s.advance(wampproto.StateEstablished); err != nil {
		return err
	}
	s.Auth = auth
	s.Agent = agent
	s.Features = features
	return nil
}

// BeginShutdown moves the session to shutting-down, on GOODBYE receipt,
// ABORT, or administrative kill.
func (s *Session) BeginShutdown() error { return s.advance(wampproto.StateShuttingDown) }

// Close finalizes a graceful shutdown.
func (s *Session) Close() error { return s.advance(wampproto.StateClosed) }

// Fail finalizes an abnormal end (protocol violation, transport loss,
// internal error) from any state.
func (s *Session) Fail() {
	s.state = wampproto.StateFailed
}
