package metaapi

import (
	"testing"

	"github.com/wudi/wampd/internal/broker"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

type noopTransport struct{ sent []wampproto.Message }

func (t *noopTransport) Send(msg wampproto.Message) error { t.sent = append(t.sent, msg); return nil }
func (t *noopTransport) Close(string) error               { return nil }

func newSession(id uint64) *session.Session {
	return session.New(id, &noopTransport{})
}

type fakeDirectory struct {
	sessions map[uint64]*session.Session
	killed   []uint64
}

func (d *fakeDirectory) Sessions() []*session.Session {
	out := make([]*session.Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s)
	}
	return out
}

func (d *fakeDirectory) Lookup(id uint64) (*session.Session, bool) {
	s, ok := d.sessions[id]
	return s, ok
}

func (d *fakeDirectory) Kill(id uint64, reason, message string) bool {
	if _, ok := d.sessions[id]; !ok {
		return false
	}
	d.killed = append(d.killed, id)
	delete(d.sessions, id)
	return true
}

func newRegistry() (*Registry, *fakeDirectory) {
	dir := &fakeDirectory{sessions: map[uint64]*session.Session{
		1: newSession(1),
		2: newSession(2),
	}}
	dir.sessions[1].Auth.AuthID = "alice"
	dir.sessions[1].Auth.AuthRole = "admin"
	dir.sessions[2].Auth.AuthID = "bob"
	dir.sessions[2].Auth.AuthRole = "guest"
	return &Registry{Broker: broker.New(), Dealer: dealer.New(), Directory: dir}, dir
}

func TestSessionCountAndList(t *testing.T) {
	r, _ := newRegistry()
	res, errReply, handled := r.Call(wampproto.Call{Procedure: "wamp.session.count"})
	if !handled || errReply != nil {
		t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, errReply)
	}
	if res.Args[0].(uint64) != 2 {
		t.Fatalf("expected count 2, got %v", res.Args[0])
	}

	listRes, errReply, handled := r.Call(wampproto.Call{Procedure: "wamp.session.list"})
	if !handled || errReply != nil {
		t.Fatalf("expected handled list with no error, got handled=%v err=%v", handled, errReply)
	}
	if ids := listRes.Args[0].(wampproto.List); len(ids) != 2 {
		t.Fatalf("expected 2 session ids, got %v", ids)
	}
}

func TestSessionGetUnknown(t *testing.T) {
	r, _ := newRegistry()
	_, errReply, handled := r.Call(wampproto.Call{Procedure: "wamp.session.get", Args: wampproto.List{uint64(999)}})
	if !handled || errReply == nil || errReply.URI != wampproto.ErrorNoSuchSession {
		t.Fatalf("expected no_such_session error, got %#v", errReply)
	}
}

func TestSessionKillByAuthRole(t *testing.T) {
	r, dir := newRegistry()
	res, _, handled := r.Call(wampproto.Call{Procedure: "wamp.session.kill_by_authrole", Args: wampproto.List{"guest"}})
	if !handled {
		t.Fatal("expected handled")
	}
	if res.Args[0].(uint64) != 1 {
		t.Fatalf("expected 1 session killed, got %v", res.Args[0])
	}
	if len(dir.killed) != 1 || dir.killed[0] != 2 {
		t.Fatalf("expected session 2 killed, got %v", dir.killed)
	}
}

func TestUnknownProcedureNotHandled(t *testing.T) {
	r, _ := newRegistry()
	_, _, handled := r.Call(wampproto.Call{Procedure: "com.myapp.add"})
	if handled {
		t.Fatal("expected unhandled for non meta-API procedure")
	}
}

func TestSubscriptionIntrospection(t *testing.T) {
	r, _ := newRegistry()
	sub := newSession(1)
	subID := r.Broker.Subscribe(sub, "com.myapp.onEvent", uri.MatchExact, false)

	listRes, _, _ := r.Call(wampproto.Call{Procedure: "wamp.subscription.list"})
	ids := listRes.Args[0].(wampproto.List)
	if len(ids) != 1 || ids[0] != subID {
		t.Fatalf("expected subscription list [%d], got %v", subID, ids)
	}

	matchRes, _, _ := r.Call(wampproto.Call{Procedure: "wamp.subscription.match", Args: wampproto.List{"com.myapp.onEvent"}})
	matches := matchRes.Args[0].(wampproto.List)
	if len(matches) != 1 || matches[0] != subID {
		t.Fatalf("expected match [%d], got %v", subID, matches)
	}

	countRes, errReply, handled := r.Call(wampproto.Call{Procedure: "wamp.subscription.count_subscribers", Args: wampproto.List{subID}})
	if !handled || errReply != nil {
		t.Fatalf("expected handled count, got err=%v", errReply)
	}
	if countRes.Args[0].(uint64) != 1 {
		t.Fatalf("expected 1 subscriber, got %v", countRes.Args[0])
	}
}

func TestRegistrationIntrospection(t *testing.T) {
	r, _ := newRegistry()
	callee := newSession(1)
	regID, err := r.Dealer.Register(callee, "com.myapp.add", uri.MatchExact, dealer.InvocationSingle, false, false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	listRes, _, _ := r.Call(wampproto.Call{Procedure: "wamp.registration.list"})
	ids := listRes.Args[0].(wampproto.List)
	if len(ids) != 1 || ids[0] != regID {
		t.Fatalf("expected registration list [%d], got %v", regID, ids)
	}

	calleesRes, errReply, handled := r.Call(wampproto.Call{Procedure: "wamp.registration.callees", Args: wampproto.List{regID}})
	if !handled || errReply != nil {
		t.Fatalf("expected handled callees, got err=%v", errReply)
	}
	callees := calleesRes.Args[0].(wampproto.List)
	if len(callees) != 1 || callees[0] != callee.ID {
		t.Fatalf("expected callees [%d], got %v", callee.ID, callees)
	}
}

func TestMetaEventsDoNotPanicWithoutSubscribers(t *testing.T) {
	r, _ := newRegistry()
	r.EmitSessionJoin(newSession(5))
	r.EmitSessionLeave(5)
	r.EmitSubscriptionMeta("wamp.subscription.on_create", 1, 1, nil)
	r.EmitRegistrationMeta("wamp.registration.on_create", 1, 1, nil)
}
