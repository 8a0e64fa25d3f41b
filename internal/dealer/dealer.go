// Package dealer implements the WAMP RPC engine: a registration index
// per match policy, best-match procedure selection, invocation-policy
// callee selection, the pending-invocation table, call-timeout
// forwarding, and cancellation, per spec.md §4.6.
package dealer

import (
	"errors"

	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

// ForwardingRule selects when a caller's CALL timeout is forwarded to
// the callee as the INVOCATION's own timeout, per spec.md §4.6.
type ForwardingRule int

const (
	// ForwardNever means the router alone enforces the deadline; the
	// callee is never told.
	ForwardNever ForwardingRule = iota
	// ForwardPerRegistration forwards iff the callee registered with
	// forward_timeouts.
	ForwardPerRegistration
	// ForwardPerFeature forwards iff the callee announced call_timeout
	// in its callee features.
	ForwardPerFeature
)

// MetaEmitter receives the dealer's meta-events.
type MetaEmitter interface {
	EmitRegistrationMeta(event string, registrationID, sessionID uint64, details wampproto.Dict)
}

// ErrAlreadyExists is returned by Register when a single-policy
// registration already exists at the requested (uri, policy).
var ErrAlreadyExists = errors.New("dealer: registration already exists")

// Dealer owns the three match-policy registration indexes and the
// pending-invocation table for one realm.
type Dealer struct {
	exact    *uri.Index[*Registration]
	prefix   *uri.Index[*Registration]
	wildcard *uri.Index[*Registration]
	byID     map[uint64]*Registration

	nextRegID uint64

	// pendingByCallee is keyed by (callee session id, callee request id);
	// pendingByCaller by (caller session id, caller request id). Both
	// point at the same *pendingInvocation so either side can locate it.
	pendingByCallee map[uint64]map[uint64]*pendingInvocation
	pendingByCaller map[uint64]map[uint64]*pendingInvocation

	Disclosure        disclosure.Resolver
	TimeoutForwarding ForwardingRule
	Meta              MetaEmitter
}

// New creates an empty Dealer.
func New() *Dealer {
	return &Dealer{
		exact:           uri.NewIndex[*Registration](uri.MatchExact),
		prefix:          uri.NewIndex[*Registration](uri.MatchPrefix),
		wildcard:        uri.NewIndex[*Registration](uri.MatchWildcard),
		byID:            make(map[uint64]*Registration),
		pendingByCallee: make(map[uint64]map[uint64]*pendingInvocation),
		pendingByCaller: make(map[uint64]map[uint64]*pendingInvocation),
	}
}

func (d *Dealer) indexFor(policy uri.MatchPolicy) *uri.Index[*Registration] {
	switch policy {
	case uri.MatchPrefix:
		return d.prefix
	case uri.MatchWildcard:
		return d.wildcard
	default:
		return d.exact
	}
}

// Register finds or creates a registration at (procedure, policy) and
// joins callee to it. It fails with ErrAlreadyExists if the existing
// registration (or the requested one) uses the single invocation policy
// and already has a callee, or if the invocation policy of a join
// request doesn't match the existing registration's.
func (d *Dealer) Register(callee *session.Session, procedure string, policy uri.MatchPolicy, invocation InvocationPolicy, forwardTimeouts, discloseCaller bool) (uint64, error) {
	ix := d.indexFor(policy)
	reg, ok := ix.FindExact(procedure)
	if ok {
		if reg.Invocation == InvocationSingle || invocation == InvocationSingle || reg.Invocation != invocation {
			return 0, ErrAlreadyExists
		}
		reg.join(callee)
		d.emitMeta("wamp.registration.on_register", reg.ID, callee.ID)
		return reg.ID, nil
	}
	d.nextRegID++
	reg = newRegistration(d.nextRegID, procedure, policy, invocation)
	reg.ForwardTimeouts = forwardTimeouts
	reg.DiscloseCallerRequested = discloseCaller
	reg.join(callee)
	_ = ix.Insert(procedure, reg)
	d.byID[reg.ID] = reg
	d.emitMeta("wamp.registration.on_create", reg.ID, callee.ID)
	d.emitMeta("wamp.registration.on_register", reg.ID, callee.ID)
	return reg.ID, nil
}

// Unregister removes callee from the registration, cancelling any of
// its pending invocations with "canceled", and deletes the registration
// from the index once empty.
func (d *Dealer) Unregister(callee *session.Session, regID uint64) bool {
	reg, ok := d.byID[regID]
	if !ok {
		return false
	}
	reg.leave(callee.ID)
	d.emitMeta("wamp.registration.on_unregister", regID, callee.ID)
	d.cancelPendingForCallee(reg.ID, callee.ID)
	if reg.empty() {
		d.indexFor(reg.Policy).Remove(reg.URI)
		delete(d.byID, regID)
		d.emitMeta("wamp.registration.on_delete", regID, callee.ID)
	}
	return true
}

// bestMatch finds the registration to invoke for procedure: exact
// before prefix before wildcard; within prefix, the longest (deepest)
// match wins; wildcard ties break by the index's own lexicographic
// traversal order (spec.md §4.6).
func (d *Dealer) bestMatch(procedure string) *Registration {
	if reg, ok := d.exact.FindExact(procedure); ok {
		return reg
	}
	if matches := d.prefix.FindMatching(procedure); len(matches) > 0 {
		return matches[len(matches)-1] // deepest == longest prefix
	}
	if matches := d.wildcard.FindMatching(procedure); len(matches) > 0 {
		return matches[0]
	}
	return nil
}

// RemoveSession unregisters sessionID as a callee from every
// registration, cancels its pending invocations in either role, and
// returns the registrations that became empty and were deleted (so a
// CachingAuthorizer can be told to uncache their (uri, policy)).
func (d *Dealer) RemoveSession(sessionID uint64) []*Registration {
	var deleted []*Registration
	for id, reg := range d.byID {
		hasCallee := false
		for _, c := range reg.callees {
			if c.ID == sessionID {
				hasCallee = true
				break
			}
		}
		if !hasCallee {
			continue
		}
		reg.leave(sessionID)
		d.cancelPendingForCallee(id, sessionID)
		if reg.empty() {
			d.indexFor(reg.Policy).Remove(reg.URI)
			delete(d.byID, id)
			deleted = append(deleted, reg)
		}
	}
	d.cancelPendingForCaller(sessionID)
	return deleted
}

// Lookup returns the registration with the given id, for meta-API
// introspection (wamp.registration.get).
func (d *Dealer) Lookup(regID uint64) (*Registration, bool) {
	reg, ok := d.byID[regID]
	return reg, ok
}

// All returns every live registration, for wamp.registration.list.
func (d *Dealer) All() []*Registration {
	out := make([]*Registration, 0, len(d.byID))
	for _, reg := range d.byID {
		out = append(out, reg)
	}
	return out
}

// MatchProcedure returns the single best-match registration for
// procedure (spec.md §4.6's exact/prefix/wildcard precedence), for
// wamp.registration.match. Returns nil if nothing matches.
func (d *Dealer) MatchProcedure(procedure string) *Registration {
	return d.bestMatch(procedure)
}

// LookupByURI returns the registration stored at exactly (procedure,
// policy), for wamp.registration.lookup.
func (d *Dealer) LookupByURI(procedure string, policy uri.MatchPolicy) (*Registration, bool) {
	return d.indexFor(policy).FindExact(procedure)
}

func (d *Dealer) emitMeta(event string, regID, sessionID uint64) {
	if d.Meta == nil {
		return
	}
	d.Meta.EmitRegistrationMeta(event, regID, sessionID, wampproto.Dict{})
}
