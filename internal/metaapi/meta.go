// Package metaapi implements the built-in session/subscription/
// registration introspection procedures and topics spec.md §7 calls the
// meta-API: wamp.session.*, wamp.subscription.*, wamp.registration.*.
//
// Meta-events are emitted by publishing through the realm's own broker
// (spec.md §7, "Emit by calling the broker's normal publish path with
// the privileged subject"), so they are subject to the same
// subscription index as any other topic rather than a separate
// notification channel.
package metaapi

import (
	"time"

	"github.com/wudi/wampd/internal/broker"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/wampproto"
)

// SessionDirectory is the slice of realm session bookkeeping the
// meta-API needs; internal/realm implements it so this package doesn't
// import internal/realm and create a cycle.
type SessionDirectory interface {
	Sessions() []*session.Session
	Lookup(id uint64) (*session.Session, bool)
	// Kill aborts the given session with reason/message and returns
	// whether a session was found to kill.
	Kill(id uint64, reason, message string) bool
}

// Registry wires the broker/dealer meta-event emitters to the realm's
// privileged publish path and answers the built-in introspection calls.
// One Registry exists per realm with the meta-API enabled.
type Registry struct {
	Broker    *broker.Broker
	Dealer    *dealer.Dealer
	Directory SessionDirectory

	// TimestampPrecision is the subsecond-digit count (0/3/6/9) used when
	// rendering "created"/"joined" timestamps in meta-API details.
	TimestampPrecision int

	replay *replayBuffer
}

// RecentEvents returns up to limit of the most recently published
// meta-events (oldest first), backing the admin /meta/{realm}/events
// HTTP endpoint and any late-attaching observer that wants to catch up.
// The buffer is allocated lazily on first use at a fixed 256-event
// capacity.
func (r *Registry) RecentEvents(limit int) []MetaEventRecord {
	if r.replay == nil {
		r.replay = newReplayBuffer(256)
	}
	return r.replay.Recent(limit)
}

func (r *Registry) publish(topic string, args wampproto.List, kwargs wampproto.Dict) {
	if r.replay == nil {
		r.replay = newReplayBuffer(256)
	}
	r.replay.record(topic, args, kwargs)
	r.Broker.Publish(nil, topic, args, kwargs, broker.PublishOptions{ExcludeMe: false})
}

// EmitSubscriptionMeta implements broker.MetaEmitter.
func (r *Registry) EmitSubscriptionMeta(event string, subscriptionID, sessionID uint64, _ wampproto.Dict) {
	switch event {
	case "wamp.subscription.on_create":
		details := wampproto.Dict{"id": subscriptionID}
		if sub, ok := r.Broker.Lookup(subscriptionID); ok {
			details["uri"] = sub.URI
			details["match"] = sub.Policy.String()
			details["created"] = FormatTimestamp(time.Now(), r.TimestampPrecision)
		}
		r.publish(event, wampproto.List{sessionID, details}, nil)
	default:
		r.publish(event, wampproto.List{sessionID, subscriptionID}, nil)
	}
}

// EmitRegistrationMeta implements dealer.MetaEmitter.
func (r *Registry) EmitRegistrationMeta(event string, registrationID, sessionID uint64, _ wampproto.Dict) {
	switch event {
	case "wamp.registration.on_create":
		details := wampproto.Dict{"id": registrationID}
		if reg, ok := r.Dealer.Lookup(registrationID); ok {
			details["uri"] = reg.URI
			details["match"] = reg.Policy.String()
			details["invoke"] = invocationPolicyName(reg.Invocation)
			details["created"] = FormatTimestamp(time.Now(), r.TimestampPrecision)
		}
		r.publish(event, wampproto.List{sessionID, details}, nil)
	default:
		r.publish(event, wampproto.List{sessionID, registrationID}, nil)
	}
}

// EmitSessionJoin publishes wamp.session.on_join, per spec.md §7.
func (r *Registry) EmitSessionJoin(sess *session.Session) {
	details := wampproto.Dict{
		"session":      sess.ID,
		"authid":       sess.Auth.AuthID,
		"authrole":     sess.Auth.AuthRole,
		"authmethod":   sess.Auth.Method,
		"authprovider": sess.Auth.Provider,
	}
	r.publish("wamp.session.on_join", wampproto.List{details}, nil)
}

// EmitSessionLeave publishes wamp.session.on_leave, per spec.md §7.
func (r *Registry) EmitSessionLeave(sessionID uint64) {
	r.publish("wamp.session.on_leave", wampproto.List{sessionID}, nil)
}

func invocationPolicyName(p dealer.InvocationPolicy) string {
	switch p {
	case dealer.InvocationRoundRobin:
		return "roundrobin"
	case dealer.InvocationRandom:
		return "random"
	case dealer.InvocationFirst:
		return "first"
	case dealer.InvocationLast:
		return "last"
	default:
		return "single"
	}
}
