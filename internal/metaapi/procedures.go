package metaapi

import (
	"github.com/wudi/wampd/internal/feature"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

// builtinPrefix identifies procedure and topic URIs this package
// reserves for introspection; realms deny ordinary clients from
// registering or publishing under it unless configured otherwise
// (spec.md §7, "meta_topic_publication_allowed").
const builtinPrefix = "wamp."

// IsReserved reports whether uri falls under the meta-API's reserved
// namespace.
func IsReserved(u string) bool {
	return len(u) >= len(builtinPrefix) && u[:len(builtinPrefix)] == builtinPrefix
}

// Call answers a CALL to one of the built-in wamp.session.*,
// wamp.subscription.*, or wamp.registration.* procedures. handled is
// false when req.Procedure isn't a known meta-API procedure, in which
// case the caller should fall through to the realm's dealer.
func (r *Registry) Call(req wampproto.Call) (result wampproto.Result, errReply *wampproto.Error, handled bool) {
	switch req.Procedure {
	case "wamp.session.count":
		return r.sessionCount(req), nil, true
	case "wamp.session.list":
		return r.sessionList(req), nil, true
	case "wamp.session.get":
		return r.sessionGet(req)
	case "wamp.session.kill":
		return r.sessionKill(req)
	case "wamp.session.kill_by_authid":
		return r.sessionKillByAuthID(req), nil, true
	case "wamp.session.kill_by_authrole":
		return r.sessionKillByAuthRole(req), nil, true
	case "wamp.session.kill_all":
		return r.sessionKillAll(req), nil, true

	case "wamp.subscription.list":
		return r.subscriptionList(), nil, true
	case "wamp.subscription.get":
		return r.subscriptionGet(req)
	case "wamp.subscription.match":
		return r.subscriptionMatch(req), nil, true
	case "wamp.subscription.lookup":
		return r.subscriptionLookup(req), nil, true
	case "wamp.subscription.subscribers":
		return r.subscriptionSubscribers(req)
	case "wamp.subscription.count_subscribers":
		return r.subscriptionCountSubscribers(req)

	case "wamp.registration.list":
		return r.registrationList(), nil, true
	case "wamp.registration.get":
		return r.registrationGet(req)
	case "wamp.registration.match":
		return r.registrationMatch(req), nil, true
	case "wamp.registration.lookup":
		return r.registrationLookup(req), nil, true
	case "wamp.registration.callees":
		return r.registrationCallees(req)
	case "wamp.registration.count_callees":
		return r.registrationCountCallees(req)

	default:
		return wampproto.Result{}, nil, false
	}
}

func roleFilter(req wampproto.Call) []string {
	if len(req.Args) == 0 {
		return nil
	}
	items, ok := req.Args[0].(wampproto.List)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) filteredSessions(req wampproto.Call) []uint64 {
	roles := roleFilter(req)
	var out []uint64
	for _, sess := range r.Directory.Sessions() {
		if len(roles) == 0 || supportsAnyRole(sess.Features, roles) {
			out = append(out, sess.ID)
		}
	}
	return out
}

func supportsAnyRole(roles feature.ClientRoles, names []string) bool {
	for _, name := range names {
		switch name {
		case "callee":
			if roles.Callee != 0 {
				return true
			}
		case "caller":
			if roles.Caller != 0 {
				return true
			}
		case "publisher":
			if roles.Publisher != 0 {
				return true
			}
		case "subscriber":
			if roles.Subscriber != 0 {
				return true
			}
		}
	}
	return false
}

func (r *Registry) sessionCount(req wampproto.Call) wampproto.Result {
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(len(r.filteredSessions(req)))}}
}

func (r *Registry) sessionList(req wampproto.Call) wampproto.Result {
	ids := r.filteredSessions(req)
	args := make(wampproto.List, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{args}}
}

func sessionIDArg(req wampproto.Call) (uint64, bool) {
	if len(req.Args) == 0 {
		return 0, false
	}
	return wampproto.AsUint64(req.Args[0])
}

func (r *Registry) sessionGet(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	sess, ok := r.Directory.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchSession(req), true
	}
	details := wampproto.Dict{
		"session":  sess.ID,
		"authid":   sess.Auth.AuthID,
		"authrole": sess.Auth.AuthRole,
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{details}}, nil, true
}

func (r *Registry) sessionKill(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	reason, message := killOptions(req)
	if !r.Directory.Kill(id, reason, message) {
		return wampproto.Result{}, noSuchSession(req), true
	}
	return wampproto.Result{Request: req.Request}, nil, true
}

func killOptions(req wampproto.Call) (reason, message string) {
	reason = wampproto.ReasonSessionKilled
	if len(req.Kwargs) == 0 {
		return reason, ""
	}
	if s, ok := req.Kwargs["reason"].(string); ok && s != "" {
		reason = s
	}
	if s, ok := req.Kwargs["message"].(string); ok {
		message = s
	}
	return reason, message
}

func (r *Registry) sessionKillByAuthID(req wampproto.Call) wampproto.Result {
	authID, _ := firstStringArg(req)
	reason, message := killOptions(req)
	n := 0
	for _, sess := range r.Directory.Sessions() {
		if sess.Auth.AuthID == authID {
			if r.Directory.Kill(sess.ID, reason, message) {
				n++
			}
		}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(n)}}
}

func (r *Registry) sessionKillByAuthRole(req wampproto.Call) wampproto.Result {
	authRole, _ := firstStringArg(req)
	reason, message := killOptions(req)
	n := 0
	for _, sess := range r.Directory.Sessions() {
		if sess.Auth.AuthRole == authRole {
			if r.Directory.Kill(sess.ID, reason, message) {
				n++
			}
		}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(n)}}
}

func (r *Registry) sessionKillAll(req wampproto.Call) wampproto.Result {
	reason, message := killOptions(req)
	n := 0
	for _, sess := range r.Directory.Sessions() {
		if r.Directory.Kill(sess.ID, reason, message) {
			n++
		}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(n)}}
}

func firstStringArg(req wampproto.Call) (string, bool) {
	if len(req.Args) == 0 {
		return "", false
	}
	s, ok := req.Args[0].(string)
	return s, ok
}

func (r *Registry) subscriptionList() wampproto.Result {
	subs := r.Broker.All()
	ids := make(wampproto.List, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
	}
	return wampproto.Result{Args: wampproto.List{ids}}
}

func (r *Registry) subscriptionGet(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	sub, ok := r.Broker.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchSubscription(req), true
	}
	details := wampproto.Dict{"id": sub.ID, "uri": sub.URI, "match": sub.Policy.String()}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{details}}, nil, true
}

func (r *Registry) subscriptionMatch(req wampproto.Call) wampproto.Result {
	topic, _ := firstStringArg(req)
	matches := r.Broker.MatchTopic(topic)
	ids := make(wampproto.List, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{ids}}
}

func (r *Registry) subscriptionLookup(req wampproto.Call) wampproto.Result {
	topic, _ := firstStringArg(req)
	policy := policyArg(req)
	if sub, ok := r.Broker.LookupByURI(topic, policy); ok {
		return wampproto.Result{Request: req.Request, Args: wampproto.List{sub.ID}}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{nil}}
}

func (r *Registry) subscriptionSubscribers(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	sub, ok := r.Broker.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchSubscription(req), true
	}
	ids := make(wampproto.List, 0, len(sub.Subscribers()))
	for _, s := range sub.Subscribers() {
		ids = append(ids, s.ID)
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{ids}}, nil, true
}

func (r *Registry) subscriptionCountSubscribers(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	sub, ok := r.Broker.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchSubscription(req), true
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(len(sub.Subscribers()))}}, nil, true
}

func (r *Registry) registrationList() wampproto.Result {
	regs := r.Dealer.All()
	ids := make(wampproto.List, len(regs))
	for i, reg := range regs {
		ids[i] = reg.ID
	}
	return wampproto.Result{Args: wampproto.List{ids}}
}

func (r *Registry) registrationGet(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	reg, ok := r.Dealer.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchRegistration(req), true
	}
	details := wampproto.Dict{"id": reg.ID, "uri": reg.URI, "match": reg.Policy.String(), "invoke": invocationPolicyName(reg.Invocation)}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{details}}, nil, true
}

func (r *Registry) registrationMatch(req wampproto.Call) wampproto.Result {
	procedure, _ := firstStringArg(req)
	if reg := r.Dealer.MatchProcedure(procedure); reg != nil {
		return wampproto.Result{Request: req.Request, Args: wampproto.List{reg.ID}}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{nil}}
}

func (r *Registry) registrationLookup(req wampproto.Call) wampproto.Result {
	procedure, _ := firstStringArg(req)
	policy := policyArg(req)
	if reg, ok := r.Dealer.LookupByURI(procedure, policy); ok {
		return wampproto.Result{Request: req.Request, Args: wampproto.List{reg.ID}}
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{nil}}
}

func (r *Registry) registrationCallees(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	reg, ok := r.Dealer.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchRegistration(req), true
	}
	callees := reg.Callees()
	ids := make(wampproto.List, len(callees))
	for i, c := range callees {
		ids[i] = c.ID
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{ids}}, nil, true
}

func (r *Registry) registrationCountCallees(req wampproto.Call) (wampproto.Result, *wampproto.Error, bool) {
	id, ok := sessionIDArg(req)
	if !ok {
		return wampproto.Result{}, invalidArgument(req), true
	}
	reg, ok := r.Dealer.Lookup(id)
	if !ok {
		return wampproto.Result{}, noSuchRegistration(req), true
	}
	return wampproto.Result{Request: req.Request, Args: wampproto.List{uint64(len(reg.Callees()))}}, nil, true
}

func policyArg(req wampproto.Call) uri.MatchPolicy {
	if len(req.Args) < 2 {
		return uri.MatchExact
	}
	s, ok := req.Args[1].(string)
	if !ok {
		return uri.MatchExact
	}
	switch s {
	case "prefix":
		return uri.MatchPrefix
	case "wildcard":
		return uri.MatchWildcard
	default:
		return uri.MatchExact
	}
}

func invalidArgument(req wampproto.Call) *wampproto.Error {
	return &wampproto.Error{RequestKind: wampproto.KindCall, Request: req.Request, Details: wampproto.Dict{}, URI: wampproto.ErrorInvalidArgument}
}

func noSuchSession(req wampproto.Call) *wampproto.Error {
	return &wampproto.Error{RequestKind: wampproto.KindCall, Request: req.Request, Details: wampproto.Dict{}, URI: wampproto.ErrorNoSuchSession}
}

func noSuchSubscription(req wampproto.Call) *wampproto.Error {
	return &wampproto.Error{RequestKind: wampproto.KindCall, Request: req.Request, Details: wampproto.Dict{}, URI: wampproto.ErrorNoSuchSubscription}
}

func noSuchRegistration(req wampproto.Call) *wampproto.Error {
	return &wampproto.Error{RequestKind: wampproto.KindCall, Request: req.Request, Details: wampproto.Dict{}, URI: wampproto.ErrorNoSuchRegistration}
}
