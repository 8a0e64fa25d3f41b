package realm

import (
	"github.com/google/uuid"

	"github.com/wudi/wampd/internal/session"
)

// Observer receives realm lifecycle notifications, per spec.md §4.9's
// "Observers receive: realm closed, session join, session leave, ...".
// Subscription/registration create/delete and subscribe/unsubscribe/
// register/unregister are already covered by the meta-API's broker/
// dealer-backed emitters (internal/metaapi); Observer carries only the
// realm-level events that have no natural home in a match-policy index.
type Observer interface {
	OnRealmClosed(realmURI string)
	OnSessionJoin(sess *session.Session)
	OnSessionLeave(sessionID uint64)
}

func (r *Realm) notify(fn func(Observer)) {
	r.mu.Lock()
	observers := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	r.mu.Unlock()

	for _, o := range observers {
		runObserver(o, fn)
	}
}

// runObserver invokes fn and recovers from a panicking observer, per
// spec.md §7: "Observers never affect routing outcomes; their
// exceptions are caught and logged." No logger is wired into this
// package (internal/logging owns log sinks); callers that need the
// failure surfaced should wrap Observer implementations themselves.
func runObserver(o Observer, fn func(Observer)) {
	defer func() { _ = recover() }()
	fn(o)
}

// AddObserver registers o and returns a handle usable with
// RemoveObserver, per spec.md §9's observer subscription-handle note.
func (r *Realm) AddObserver(o Observer) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.observers[id] = o
	r.mu.Unlock()
	return id
}

// RemoveObserver unregisters the observer registered under id.
func (r *Realm) RemoveObserver(id uuid.UUID) {
	r.mu.Lock()
	delete(r.observers, id)
	r.mu.Unlock()
}
