// Package broker implements the WAMP publish/subscribe engine: a
// subscription index per match policy, subscriber filtering, and
// disclosure-aware EVENT fan-out, per spec.md §4.5.
package broker

import (
	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

// MetaEmitter receives the broker's meta-events
// (wamp.subscription.on_create/on_subscribe/on_unsubscribe/on_delete).
// A realm without the meta-API enabled leaves this nil; Broker treats a
// nil emitter as "no one is listening".
type MetaEmitter interface {
	EmitSubscriptionMeta(event string, subscriptionID, sessionID uint64, details wampproto.Dict)
}

// Subscription is one (uri, policy) pattern and its current subscribers.
type Subscription struct {
	ID      uint64
	URI     string
	Policy  uri.MatchPolicy
	members map[uint64]*session.Session
	// discloseRequested records whether any subscriber asked for
	// publisher identification at SUBSCRIBE time (the "consumer flag" in
	// spec.md §4.7's disclosure resolution).
	discloseRequested bool
}

// Subscribers returns a snapshot of the current subscriber sessions.
func (s *Subscription) Subscribers() []*session.Session {
	out := make([]*session.Session, 0, len(s.members))
	for _, sess := range s.members {
		out = append(out, sess)
	}
	return out
}

// Broker owns the three match-policy indexes and the publication-id
// counter for one realm.
type Broker struct {
	exact    *uri.Index[*Subscription]
	prefix   *uri.Index[*Subscription]
	wildcard *uri.Index[*Subscription]
	byID     map[uint64]*Subscription

	nextSubID uint64
	nextPubID uint64

	Disclosure disclosure.Resolver
	Meta       MetaEmitter
}

// New creates an empty Broker.
func New() *Broker {
	return &Broker{
		exact:    uri.NewIndex[*Subscription](uri.MatchExact),
		prefix:   uri.NewIndex[*Subscription](uri.MatchPrefix),
		wildcard: uri.NewIndex[*Subscription](uri.MatchWildcard),
		byID:     make(map[uint64]*Subscription),
	}
}

func (b *Broker) indexFor(policy uri.MatchPolicy) *uri.Index[*Subscription] {
	switch policy {
	case uri.MatchPrefix:
		return b.prefix
	case uri.MatchWildcard:
		return b.wildcard
	default:
		return b.exact
	}
}

// Subscribe finds or creates the (topic, policy) subscription and adds
// subscriber to its member set, emitting on_create (if new) and
// on_subscribe.
func (b *Broker) Subscribe(subscriber *session.Session, topic string, policy uri.MatchPolicy, discloseRequested bool) uint64 {
	ix := b.indexFor(policy)
	sub, ok := ix.FindExact(topic)
	if !ok {
		b.nextSubID++
		sub = &Subscription{ID: b.nextSubID, URI: topic, Policy: policy, members: make(map[uint64]*session.Session)}
		_ = ix.Insert(topic, sub)
		b.byID[sub.ID] = sub
		b.emitMeta("wamp.subscription.on_create", sub.ID, subscriber.ID)
	}
	if discloseRequested {
		sub.discloseRequested = true
	}
	sub.members[subscriber.ID] = subscriber
	b.emitMeta("wamp.subscription.on_subscribe", sub.ID, subscriber.ID)
	return sub.ID
}

// Unsubscribe removes subscriber from the subscription, deleting it
// from the index when it becomes empty. Returns false if subID is
// unknown.
func (b *Broker) Unsubscribe(subscriber *session.Session, subID uint64) bool {
	sub, ok := b.byID[subID]
	if !ok {
		return false
	}
	delete(sub.members, subscriber.ID)
	b.emitMeta("wamp.subscription.on_unsubscribe", subID, subscriber.ID)
	if len(sub.members) == 0 {
		b.indexFor(sub.Policy).Remove(sub.URI)
		delete(b.byID, subID)
		b.emitMeta("wamp.subscription.on_delete", subID, subscriber.ID)
	}
	return true
}

// RemoveSession drops sessionID from every subscription it belongs to,
// for use on session leave. Returns the subscriptions that became empty
// and were deleted, so a CachingAuthorizer can be told to uncache their
// (uri, policy).
func (b *Broker) RemoveSession(sessionID uint64) []*Subscription {
	var deleted []*Subscription
	for id, sub := range b.byID {
		if _, ok := sub.members[sessionID]; !ok {
			continue
		}
		delete(sub.members, sessionID)
		b.emitMeta("wamp.subscription.on_unsubscribe", id, sessionID)
		if len(sub.members) == 0 {
			b.indexFor(sub.Policy).Remove(sub.URI)
			delete(b.byID, id)
			b.emitMeta("wamp.subscription.on_delete", id, sessionID)
			deleted = append(deleted, sub)
		}
	}
	return deleted
}

// Lookup returns the subscription with the given id, for meta-API
// introspection (wamp.subscription.get).
func (b *Broker) Lookup(subID uint64) (*Subscription, bool) {
	sub, ok := b.byID[subID]
	return sub, ok
}

// All returns every live subscription, for wamp.subscription.list.
func (b *Broker) All() []*Subscription {
	out := make([]*Subscription, 0, len(b.byID))
	for _, sub := range b.byID {
		out = append(out, sub)
	}
	return out
}

// MatchTopic returns every subscription whose pattern matches topic
// across all three match policies, for wamp.subscription.match.
func (b *Broker) MatchTopic(topic string) []*Subscription {
	var out []*Subscription
	out = append(out, b.exact.FindMatching(topic)...)
	out = append(out, b.prefix.FindMatching(topic)...)
	out = append(out, b.wildcard.FindMatching(topic)...)
	return out
}

// LookupByURI returns the subscription stored at exactly (topic,
// policy), for wamp.subscription.lookup.
func (b *Broker) LookupByURI(topic string, policy uri.MatchPolicy) (*Subscription, bool) {
	return b.indexFor(policy).FindExact(topic)
}

func (b *Broker) emitMeta(event string, subID, sessionID uint64) {
	if b.Meta == nil {
		return
	}
	b.Meta.EmitSubscriptionMeta(event, subID, sessionID, wampproto.Dict{})
}
