package wsserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/wudi/wampd/internal/admission"
	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/codec"
	"github.com/wudi/wampd/internal/router"
	"github.com/wudi/wampd/internal/transport"
	"github.com/wudi/wampd/internal/wampproto"
)

func newTestServer(t *testing.T) (*httptest.Server, *router.Router) {
	t.Helper()
	rt := router.New(nil)
	if _, err := rt.OpenRealm(router.RealmOptions{URI: "realm1", Authorizer: authorize.Default{}}); err != nil {
		t.Fatalf("OpenRealm: %v", err)
	}

	s := New(Config{
		ID:        "test",
		Transport: transport.DefaultWebSocketConfig(),
		Admission: admission.Config{HardLimit: 100},
		Router:    rt,
	})
	return httptest.NewServer(http.HandlerFunc(s.handleUpgrade)), rt
}

func wsURL(httpURL string) string { return "ws" + httpURL[len("http"):] }

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"wamp.2.json"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg wampproto.Message) {
	t.Helper()
	data, err := codec.JSON{}.Encode(wampproto.ToRaw(msg))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) wampproto.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	raw, err := codec.JSON{}.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msg, err := wampproto.FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	return msg
}

func TestHandshakeWelcomesAnonymousSession(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL))
	defer conn.Close(websocket.StatusNormalClosure, "")

	send(t, conn, wampproto.Hello{Realm: "realm1", Details: wampproto.Dict{}})

	welcome, ok := receive(t, conn).(wampproto.Welcome)
	if !ok {
		t.Fatalf("expected Welcome, got %T", welcome)
	}
	if welcome.Session == 0 {
		t.Fatal("expected a nonzero session id")
	}
}

func TestHandshakeRejectsUnknownRealm(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL))
	defer conn.Close(websocket.StatusNormalClosure, "")

	send(t, conn, wampproto.Hello{Realm: "no.such.realm", Details: wampproto.Dict{}})

	abort, ok := receive(t, conn).(wampproto.Abort)
	if !ok {
		t.Fatalf("expected Abort, got %T", abort)
	}
	if abort.Reason != wampproto.ErrorNoSuchRealm {
		t.Fatalf("expected %q, got %q", wampproto.ErrorNoSuchRealm, abort.Reason)
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	subConn := dial(t, wsURL(srv.URL))
	defer subConn.Close(websocket.StatusNormalClosure, "")
	send(t, subConn, wampproto.Hello{Realm: "realm1", Details: wampproto.Dict{}})
	if _, ok := receive(t, subConn).(wampproto.Welcome); !ok {
		t.Fatal("expected Welcome for subscriber")
	}

	send(t, subConn, wampproto.Subscribe{Request: 1, Options: wampproto.Dict{}, Topic: "com.example.topic"})
	subscribed, ok := receive(t, subConn).(wampproto.Subscribed)
	if !ok {
		t.Fatalf("expected Subscribed, got %T", subscribed)
	}

	pubConn := dial(t, wsURL(srv.URL))
	defer pubConn.Close(websocket.StatusNormalClosure, "")
	send(t, pubConn, wampproto.Hello{Realm: "realm1", Details: wampproto.Dict{}})
	if _, ok := receive(t, pubConn).(wampproto.Welcome); !ok {
		t.Fatal("expected Welcome for publisher")
	}

	send(t, pubConn, wampproto.Publish{
		Request: 2,
		Options: wampproto.Dict{"acknowledge": true},
		Topic:   "com.example.topic",
		Args:    wampproto.List{"hello"},
	})
	published, ok := receive(t, pubConn).(wampproto.Published)
	if !ok {
		t.Fatalf("expected Published, got %T", published)
	}

	event, ok := receive(t, subConn).(wampproto.Event)
	if !ok {
		t.Fatalf("expected Event, got %T", event)
	}
	if event.Subscription != subscribed.Subscription {
		t.Fatalf("expected subscription %d, got %d", subscribed.Subscription, event.Subscription)
	}
	if len(event.Args) != 1 || event.Args[0] != "hello" {
		t.Fatalf("unexpected event args: %+v", event.Args)
	}
}

func TestCallNoSuchProcedureReturnsError(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL))
	defer conn.Close(websocket.StatusNormalClosure, "")
	send(t, conn, wampproto.Hello{Realm: "realm1", Details: wampproto.Dict{}})
	if _, ok := receive(t, conn).(wampproto.Welcome); !ok {
		t.Fatal("expected Welcome")
	}

	send(t, conn, wampproto.Call{Request: 7, Options: wampproto.Dict{}, Procedure: "com.example.missing"})
	errMsg, ok := receive(t, conn).(wampproto.Error)
	if !ok {
		t.Fatalf("expected Error, got %T", errMsg)
	}
	if errMsg.URI != wampproto.ErrorNoSuchProcedure {
		t.Fatalf("expected %q, got %q", wampproto.ErrorNoSuchProcedure, errMsg.URI)
	}
}
