package dealer

import (
	"errors"
	"time"

	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/feature"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/wampproto"
)

// ErrNoSuchProcedure is returned by Call when no registration matches.
var ErrNoSuchProcedure = errors.New("dealer: no such procedure")

// pendingInvocation tracks one in-flight CALL/INVOCATION pair so the
// eventual YIELD/ERROR/CANCEL can be routed back to the caller, per
// spec.md §4.6's "Pending invocation" entity.
type pendingInvocation struct {
	CallerSession   *session.Session
	CallerRequestID uint64
	CalleeSession   *session.Session
	CalleeRequestID uint64
	RegistrationID  uint64

	ProgressiveResults     bool
	ProgressiveInvocations bool
	Disclosure             disclosure.Policy

	timer *time.Timer
}

func (d *Dealer) storePending(p *pendingInvocation) {
	if d.pendingByCallee[p.CalleeSession.ID] == nil {
		d.pendingByCallee[p.CalleeSession.ID] = make(map[uint64]*pendingInvocation)
	}
	d.pendingByCallee[p.CalleeSession.ID][p.CalleeRequestID] = p
	if d.pendingByCaller[p.CallerSession.ID] == nil {
		d.pendingByCaller[p.CallerSession.ID] = make(map[uint64]*pendingInvocation)
	}
	d.pendingByCaller[p.CallerSession.ID][p.CallerRequestID] = p
}

func (d *Dealer) finishPending(p *pendingInvocation) {
	if p.timer != nil {
		p.timer.Stop()
	}
	if m := d.pendingByCallee[p.CalleeSession.ID]; m != nil {
		delete(m, p.CalleeRequestID)
		if len(m) == 0 {
			delete(d.pendingByCallee, p.CalleeSession.ID)
		}
	}
	if m := d.pendingByCaller[p.CallerSession.ID]; m != nil {
		delete(m, p.CallerRequestID)
		if len(m) == 0 {
			delete(d.pendingByCaller, p.CallerSession.ID)
		}
	}
}

// cancelPendingForCallee finishes every pending invocation a departing
// or unregistering callee owes for regID, replying ERROR(canceled) to
// each waiting caller; the callee itself is sent nothing.
func (d *Dealer) cancelPendingForCallee(regID, calleeID uint64) {
	for _, p := range d.pendingByCallee[calleeID] {
		if p.RegistrationID != regID {
			continue
		}
		p.CallerSession.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindCall,
			Request:     p.CallerRequestID,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorCanceled,
		})
		d.finishPending(p)
	}
}

// cancelPendingForCaller finishes every pending invocation owed to a
// departing caller, telling its callee the call is moot via INTERRUPT.
func (d *Dealer) cancelPendingForCaller(callerID uint64) {
	for _, p := range d.pendingByCaller[callerID] {
		p.CalleeSession.Transport.Send(wampproto.Interrupt{
			Request: p.CalleeRequestID,
			Options: wampproto.Dict{"mode": "killnowait"},
		})
		d.finishPending(p)
	}
}

func (d *Dealer) shouldForwardTimeout(reg *Registration, callee *session.Session) bool {
	switch d.TimeoutForwarding {
	case ForwardPerRegistration:
		return reg.ForwardTimeouts
	case ForwardPerFeature:
		return callee.Features.Callee.Supports(feature.CallTimeout)
	default:
		return false
	}
}

// Call resolves the best-match registration for req.Procedure, selects
// a callee per the registration's invocation policy, allocates the
// callee-side request-id, resolves caller disclosure, and forwards an
// INVOCATION. It returns the allocated PendingInvocation's registration
// id, or ErrNoSuchProcedure if nothing matches.
func (d *Dealer) Call(caller *session.Session, req wampproto.Call, discloseMe bool, override disclosure.Policy) (uint64, error) {
	reg := d.bestMatch(req.Procedure)
	if reg == nil {
		return 0, ErrNoSuchProcedure
	}
	callee := reg.selectCallee()
	if callee == nil {
		return 0, ErrNoSuchProcedure
	}

	calleeReqID := callee.NextCalleeRequestID()
	disclose, _ := d.Disclosure.Resolve(override, discloseMe, reg.DiscloseCallerRequested)

	details := wampproto.Dict{}
	if reg.URI != req.Procedure {
		details["procedure"] = req.Procedure
	}
	if disclose && caller != nil {
		details["caller"] = caller.ID
		if caller.Auth.AuthID != "" {
			details["caller_authid"] = caller.Auth.AuthID
		}
		if caller.Auth.AuthRole != "" {
			details["caller_authrole"] = caller.Auth.AuthRole
		}
	}

	progressiveResults, _ := req.Options["receive_progress"].(bool)
	progressiveInvocations, _ := req.Options["progress"].(bool)
	if progressiveInvocations {
		details["progress"] = true
	}

	p := &pendingInvocation{
		CallerSession:          caller,
		CallerRequestID:        req.Request,
		CalleeSession:          callee,
		CalleeRequestID:        calleeReqID,
		RegistrationID:         reg.ID,
		ProgressiveResults:     progressiveResults,
		ProgressiveInvocations: progressiveInvocations,
		Disclosure:             override,
	}
	d.storePending(p)

	if timeoutMS, ok := wampproto.AsUint64(req.Options["timeout"]); ok && timeoutMS > 0 {
		if d.shouldForwardTimeout(reg, callee) {
			details["timeout"] = timeoutMS
		}
		deadline := time.Duration(timeoutMS) * time.Millisecond
		p.timer = time.AfterFunc(deadline, func() { d.expirePending(p) })
	}

	callee.Transport.Send(wampproto.Invocation{
		Request:      calleeReqID,
		Registration: reg.ID,
		Details:      details,
		Args:         req.Args,
		Kwargs:       req.Kwargs,
	})
	return reg.ID, nil
}

// expirePending runs when a CALL's "timeout" option elapses without a
// YIELD/ERROR from the callee. The caller gets ErrorCanceled, matching
// the reference implementation's WampErrc::cancelled for an unforwarded
// router-side expiry (cppwamp routeroptionstest.cpp / routerconfigtest.cpp),
// not ErrorTimeout.
func (d *Dealer) expirePending(p *pendingInvocation) {
	d.finishPending(p)
	p.CallerSession.Transport.Send(wampproto.Error{
		RequestKind: wampproto.KindCall,
		Request:     p.CallerRequestID,
		Details:     wampproto.Dict{},
		URI:         wampproto.ErrorCanceled,
	})
}

// Cancel handles a caller's CANCEL for one of its own pending calls.
// mode is one of "skip" (default), "kill", or "killnowait" per
// spec.md §4.6. "skip" and "killnowait" reply ERROR(canceled)
// immediately; "kill" only forwards INTERRUPT and leaves the pending
// invocation in place for the callee's eventual YIELD/ERROR.
func (d *Dealer) Cancel(caller *session.Session, req wampproto.Cancel) {
	p, ok := d.pendingByCaller[caller.ID][req.Request]
	if !ok {
		return
	}
	mode, _ := req.Options["mode"].(string)
	if mode == "" {
		mode = "skip"
	}

	if mode != "skip" {
		p.CalleeSession.Transport.Send(wampproto.Interrupt{
			Request: p.CalleeRequestID,
			Options: wampproto.Dict{"mode": mode},
		})
	}
	if mode == "kill" {
		return
	}
	d.finishPending(p)
	caller.Transport.Send(wampproto.Error{
		RequestKind: wampproto.KindCall,
		Request:     p.CallerRequestID,
		Details:     wampproto.Dict{},
		URI:         wampproto.ErrorCanceled,
	})
}

// Yield handles a callee's reply to a pending invocation. A "progress"
// option keeps the pending invocation alive for further YIELDs, iff the
// caller had requested progressive results; any other YIELD is terminal.
func (d *Dealer) Yield(callee *session.Session, req wampproto.Yield) {
	p, ok := d.pendingByCallee[callee.ID][req.Request]
	if !ok {
		return
	}
	progress, _ := req.Options["progress"].(bool)

	details := wampproto.Dict{}
	if progress && p.ProgressiveResults {
		details["progress"] = true
		p.CallerSession.Transport.Send(wampproto.Result{
			Request: p.CallerRequestID,
			Details: details,
			Args:    req.Args,
			Kwargs:  req.Kwargs,
		})
		return
	}

	p.CallerSession.Transport.Send(wampproto.Result{
		Request: p.CallerRequestID,
		Details: details,
		Args:    req.Args,
		Kwargs:  req.Kwargs,
	})
	d.finishPending(p)
}

// ErrorFromCallee forwards a callee's ERROR reply to a pending
// invocation back to the caller as the CALL's own ERROR, and finishes
// the pending invocation.
func (d *Dealer) ErrorFromCallee(callee *session.Session, req wampproto.Error) {
	p, ok := d.pendingByCallee[callee.ID][req.Request]
	if !ok {
		return
	}
	p.CallerSession.Transport.Send(wampproto.Error{
		RequestKind: wampproto.KindCall,
		Request:     p.CallerRequestID,
		Details:     req.Details,
		URI:         req.URI,
		Args:        req.Args,
		Kwargs:      req.Kwargs,
	})
	d.finishPending(p)
}
