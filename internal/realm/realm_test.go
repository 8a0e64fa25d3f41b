package realm

import (
	"testing"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

type recordingTransport struct {
	sent   []wampproto.Message
	closed string
}

func (t *recordingTransport) Send(msg wampproto.Message) error { t.sent = append(t.sent, msg); return nil }
func (t *recordingTransport) Close(reason string) error         { t.closed = reason; return nil }

func newSession(id uint64) (*session.Session, *recordingTransport) {
	tr := &recordingTransport{}
	return session.New(id, tr), tr
}

func TestJoinAndLeaveTracksSessionSet(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	sess, _ := newSession(1)
	r.Join(sess)

	if r.SessionCount() != 1 {
		t.Fatalf("expected 1 session joined, got %d", r.SessionCount())
	}
	if _, ok := r.Lookup(1); !ok {
		t.Fatal("expected session lookup to find joined session")
	}

	r.Leave(1)
	if r.SessionCount() != 0 {
		t.Fatalf("expected 0 sessions after leave, got %d", r.SessionCount())
	}
}

func TestLeaveRemovesSubscriptionsAndRegistrations(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	sess, _ := newSession(1)
	r.Join(sess)

	r.Broker.Subscribe(sess, "t", uri.MatchExact, false)
	if _, err := r.Dealer.Register(sess, "p", uri.MatchExact, 0, false, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	r.Leave(1)

	if _, ok := r.Broker.LookupByURI("t", uri.MatchExact); ok {
		t.Fatal("expected subscription removed on leave")
	}
	if _, ok := r.Dealer.LookupByURI("p", uri.MatchExact); ok {
		t.Fatal("expected registration removed on leave")
	}
}

type invalidatingAuthorizer struct {
	authorize.Default
	uncachedSessions   []string
	uncachedTopics     []string
	uncachedProcedures []string
}

func (a *invalidatingAuthorizer) UncacheSession(authID string) {
	a.uncachedSessions = append(a.uncachedSessions, authID)
}
func (a *invalidatingAuthorizer) UncacheTopic(u string, _ uri.MatchPolicy) {
	a.uncachedTopics = append(a.uncachedTopics, u)
}
func (a *invalidatingAuthorizer) UncacheProcedure(u string, _ uri.MatchPolicy) {
	a.uncachedProcedures = append(a.uncachedProcedures, u)
}

func TestLeaveInvalidatesAuthorizerCache(t *testing.T) {
	authz := &invalidatingAuthorizer{}
	r := New("realm1", Options{}, authz)
	sess, _ := newSession(1)
	sess.Auth.AuthID = "alice"
	r.Join(sess)

	r.Broker.Subscribe(sess, "t", uri.MatchExact, false)
	r.Dealer.Register(sess, "p", uri.MatchExact, 0, false, false)

	r.Leave(1)

	if len(authz.uncachedTopics) != 1 || authz.uncachedTopics[0] != "t" {
		t.Fatalf("expected topic 't' uncached, got %v", authz.uncachedTopics)
	}
	if len(authz.uncachedProcedures) != 1 || authz.uncachedProcedures[0] != "p" {
		t.Fatalf("expected procedure 'p' uncached, got %v", authz.uncachedProcedures)
	}
	if len(authz.uncachedSessions) != 1 || authz.uncachedSessions[0] != "alice" {
		t.Fatalf("expected session 'alice' uncached, got %v", authz.uncachedSessions)
	}
}

func TestKillAbortsTransportAndLeavesRealm(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	sess, tr := newSession(1)
	r.Join(sess)

	if !r.Kill(1, wampproto.ReasonSessionKilled, "bye") {
		t.Fatal("expected kill to succeed")
	}
	if tr.closed != wampproto.ReasonSessionKilled {
		t.Fatalf("expected transport closed with session_killed reason, got %q", tr.closed)
	}
	if r.SessionCount() != 0 {
		t.Fatal("expected session removed from realm after kill")
	}
}

func TestKillUnknownSessionReturnsFalse(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	if r.Kill(999, "reason", "") {
		t.Fatal("expected kill of unknown session to fail")
	}
}

type observerSpy struct {
	joined []uint64
	left   []uint64
	closed []string
}

func (o *observerSpy) OnRealmClosed(uri string)         { o.closed = append(o.closed, uri) }
func (o *observerSpy) OnSessionJoin(s *session.Session) { o.joined = append(o.joined, s.ID) }
func (o *observerSpy) OnSessionLeave(id uint64)         { o.left = append(o.left, id) }

func TestObserversNotifiedOnJoinLeaveAndClose(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	spy := &observerSpy{}
	r.AddObserver(spy)

	sess, _ := newSession(1)
	r.Join(sess)
	r.Leave(1)
	r.Close()

	if len(spy.joined) != 1 || spy.joined[0] != 1 {
		t.Fatalf("expected join notification, got %v", spy.joined)
	}
	if len(spy.left) != 1 || spy.left[0] != 1 {
		t.Fatalf("expected leave notification, got %v", spy.left)
	}
	if len(spy.closed) != 1 || spy.closed[0] != "realm1" {
		t.Fatalf("expected realm-closed notification, got %v", spy.closed)
	}
}

func TestMetaAPIEnabledHandlesSessionCount(t *testing.T) {
	r := New("realm1", Options{MetaAPIEnabled: true}, authorize.Default{})
	sess, _ := newSession(1)
	r.Join(sess)

	res, errReply, handled := r.RouteCall(wampproto.Call{Request: 1, Procedure: "wamp.session.count"})
	if !handled || errReply != nil {
		t.Fatalf("expected handled meta-API call, got handled=%v err=%v", handled, errReply)
	}
	if res.Args[0].(uint64) != 1 {
		t.Fatalf("expected session count 1, got %v", res.Args[0])
	}
	if res.Request != 1 {
		t.Fatalf("expected result correlated to request id, got %d", res.Request)
	}
}

func TestRouteCallFallsThroughWithoutMetaAPI(t *testing.T) {
	r := New("realm1", Options{}, authorize.Default{})
	_, _, handled := r.RouteCall(wampproto.Call{Procedure: "wamp.session.count"})
	if handled {
		t.Fatal("expected unhandled when meta-API disabled")
	}
}

func TestRouteCallFallsThroughForOrdinaryProcedure(t *testing.T) {
	r := New("realm1", Options{MetaAPIEnabled: true}, authorize.Default{})
	_, _, handled := r.RouteCall(wampproto.Call{Procedure: "com.myapp.add"})
	if handled {
		t.Fatal("expected ordinary procedures to fall through to the dealer")
	}
}
