// Package realm implements the per-URI-namespace container spec.md §4.9
// describes: one broker, one dealer, one authorizer chain, the session
// set, the observer set, and (when enabled) the meta-API registry.
package realm

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/broker"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/metaapi"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/wampproto"
)

// Options configures one realm, per spec.md §3's Realm entity fields.
type Options struct {
	CallerDisclosure    disclosure.Policy
	PublisherDisclosure disclosure.Policy
	StrictDisclosure    bool
	TimeoutForwarding   dealer.ForwardingRule

	MetaAPIEnabled                   bool
	MetaProcedureRegistrationAllowed bool
	MetaTopicPublicationAllowed      bool

	TimestampPrecision int
}

// Realm owns the broker, dealer, authorizer, session set, and observer
// set for one URI namespace.
type Realm struct {
	URI        string
	Broker     *broker.Broker
	Dealer     *dealer.Dealer
	Authorizer authorize.Authorizer
	Options    Options
	Meta       *metaapi.Registry

	mu        sync.Mutex
	sessions  map[uint64]*session.Session
	observers map[uuid.UUID]Observer
	closed    bool
}

// New creates a realm at uri with the given options and authorizer. If
// opts.MetaAPIEnabled, a metaapi.Registry is wired to the realm's broker
// and dealer as their meta-event emitter.
func New(uri string, opts Options, authorizer authorize.Authorizer) *Realm {
	b := broker.New()
	d := dealer.New()
	b.Disclosure = disclosure.Resolver{RealmPolicy: opts.PublisherDisclosure, Strict: opts.StrictDisclosure}
	d.Disclosure = disclosure.Resolver{RealmPolicy: opts.CallerDisclosure, Strict: opts.StrictDisclosure}
	d.TimeoutForwarding = opts.TimeoutForwarding

	r := &Realm{
		URI:        uri,
		Broker:     b,
		Dealer:     d,
		Authorizer: authorizer,
		Options:    opts,
		sessions:   make(map[uint64]*session.Session),
		observers:  make(map[uuid.UUID]Observer),
	}

	if opts.MetaAPIEnabled {
		r.Meta = &metaapi.Registry{
			Broker:             b,
			Dealer:             d,
			Directory:          r,
			TimestampPrecision: opts.TimestampPrecision,
		}
		b.Meta = r.Meta
		d.Meta = r.Meta
	}
	return r
}

// invalidator returns the authorizer's CacheInvalidator facet, if any.
func (r *Realm) invalidator() authorize.CacheInvalidator {
	inv, _ := r.Authorizer.(authorize.CacheInvalidator)
	return inv
}

// Join admits an established session into the realm's session set,
// per spec.md §3's "A session belongs to at most one realm at a time"
// invariant (enforced by the caller routing HELLO to exactly one
// realm's Join).
func (r *Realm) Join(sess *session.Session) {
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	if r.Meta != nil {
		r.Meta.EmitSessionJoin(sess)
	}
	r.notify(func(o Observer) { o.OnSessionJoin(sess) })
}

// Leave removes sessionID from the realm: drops its subscriptions and
// registrations, cancels any pending invocations it held in either
// role, invalidates cached authorization decisions scoped to it, emits
// wamp.session.on_leave, and notifies observers.
func (r *Realm) Leave(sessionID uint64) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	deletedSubs := r.Broker.RemoveSession(sessionID)
	deletedRegs := r.Dealer.RemoveSession(sessionID)

	if inv := r.invalidator(); inv != nil {
		for _, sub := range deletedSubs {
			inv.UncacheTopic(sub.URI, sub.Policy)
		}
		for _, reg := range deletedRegs {
			inv.UncacheProcedure(reg.URI, reg.Policy)
		}
		if sess.Auth.AuthID != "" {
			inv.UncacheSession(sess.Auth.AuthID)
		}
	}

	if r.Meta != nil {
		r.Meta.EmitSessionLeave(sessionID)
	}
	r.notify(func(o Observer) { o.OnSessionLeave(sessionID) })
}

// Kill implements metaapi.SessionDirectory: it aborts the session's
// transport with reason/message and runs it through Leave.
func (r *Realm) Kill(id uint64, reason, message string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	_ = sess.BeginShutdown()
	_ = sess.Transport.Send(wampproto.Abort{
		Reason:  reason,
		Details: wampproto.Dict{"message": message},
	})
	_ = sess.Transport.Close(reason)
	sess.Fail()
	r.Leave(id)
	return true
}

// Sessions implements metaapi.SessionDirectory.
func (r *Realm) Sessions() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Lookup implements metaapi.SessionDirectory.
func (r *Realm) Lookup(id uint64) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SessionCount returns the number of sessions currently joined.
func (r *Realm) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close transitions every joined session through shutdown, notifies
// observers of the realm close, and discards broker/dealer state, per
// spec.md §4.9.
func (r *Realm) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[uint64]*session.Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.BeginShutdown()
		_ = sess.Transport.Close(wampproto.ReasonCloseRealm)
		_ = sess.Close()
	}

	r.notify(func(o Observer) { o.OnRealmClosed(r.URI) })

	r.Broker = broker.New()
	r.Dealer = dealer.New()
}
