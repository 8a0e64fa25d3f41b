package wsserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wudi/wampd/internal/admission"
	"github.com/wudi/wampd/internal/authexchange"
	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/broker"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/feature"
	"github.com/wudi/wampd/internal/logging"
	"github.com/wudi/wampd/internal/metaapi"
	"github.com/wudi/wampd/internal/realm"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/transport"
	"github.com/wudi/wampd/internal/uri"
	"github.com/wudi/wampd/internal/wampproto"
)

// transportAdapter narrows a *transport.WebSocket to the session.Transport
// surface (Send plus a reason-carrying Close), kept here rather than on
// transport.WebSocket itself since that package stays free of a
// session-package dependency.
type transportAdapter struct {
	ws *transport.WebSocket
}

func (t transportAdapter) Send(msg wampproto.Message) error { return t.ws.Send(msg) }
func (t transportAdapter) Close(reason string) error         { return t.ws.Shutdown(reason) }

// conn runs one admitted transport through the HELLO handshake and, once
// established, the per-message WAMP dispatch loop.
type conn struct {
	srv    *Server
	ws     *transport.WebSocket
	handle *admission.Handle

	sess    *session.Session
	realm   *realm.Realm
	limiter *rate.Limiter
}

func (c *conn) serve(ctx context.Context) {
	defer c.handle.Release()
	defer c.ws.Close()

	if !c.handshake(ctx) {
		return
	}
	defer c.realm.Leave(c.sess.ID)

	for {
		msg, err := c.ws.Receive(ctx, c.sess.State())
		if err != nil {
			c.abortOnProtocolViolation(err)
			return
		}
		c.handle.Touch()

		if _, ok := msg.(wampproto.Goodbye); ok {
			_ = c.ws.Send(wampproto.Goodbye{Reason: wampproto.ReasonGoodbyeAndOut, Details: wampproto.Dict{}})
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			_ = c.ws.Abort(wampproto.ErrorResourceExhausted, wampproto.Dict{"message": "message rate limit exceeded"})
			return
		}
		c.dispatch(ctx, msg)
	}
}

// handshake runs HELLO -> realm lookup -> authentication rounds ->
// WELCOME. It returns false on any failure, having aborted the
// transport unless the failure was a Send to it that had already failed.
func (c *conn) handshake(ctx context.Context) bool {
	msg, err := c.ws.Receive(ctx, wampproto.StateEstablishing)
	if err != nil {
		c.abortOnProtocolViolation(err)
		return false
	}
	hello, ok := msg.(wampproto.Hello)
	if !ok {
		_ = c.ws.Abort(wampproto.ReasonProtocolViolation, wampproto.Dict{"message": "expected HELLO"})
		return false
	}
	c.handle.OnHelloReceived()

	rm, ok := c.srv.cfg.Router.Realm(hello.Realm)
	if !ok {
		_ = c.ws.Abort(wampproto.ErrorNoSuchRealm, wampproto.Dict{})
		return false
	}
	c.realm = rm

	var authenticator authexchange.Authenticator
	if c.srv.cfg.Authenticate != nil {
		authenticator = c.srv.cfg.Authenticate(hello.Realm)
	}
	if authenticator == nil {
		authenticator = &authexchange.Anonymous{}
	}

	ex := authexchange.New(hello)
	var info authexchange.AuthInfo
	for {
		outcome, err := authexchange.Run(ctx, authenticator, nil, ex)
		if err != nil {
			_ = c.ws.Abort(wampproto.ReasonProtocolViolation, wampproto.Dict{})
			return false
		}
		switch outcome.Kind {
		case authexchange.OutcomeChallenge:
			c.handle.OnChallengeIssued()
			if err := c.ws.Send(outcome.Challenge); err != nil {
				return false
			}
			reply, err := c.ws.Receive(ctx, wampproto.StateAuthenticating)
			if err != nil {
				c.abortOnProtocolViolation(err)
				return false
			}
			auth, ok := reply.(wampproto.Authenticate)
			if !ok {
				_ = c.ws.Abort(wampproto.ReasonProtocolViolation, wampproto.Dict{"message": "expected AUTHENTICATE"})
				return false
			}
			ex.SetAuthentication(auth)
			continue
		case authexchange.OutcomeReject:
			_ = c.ws.Abort(outcome.Reason, wampproto.Dict{})
			return false
		case authexchange.OutcomeWelcome:
			info = outcome.Info
		}
		break
	}
	c.handle.OnAuthenticated()

	sess := session.New(c.srv.nextSessionID(), transportAdapter{ws: c.ws})
	sess.RealmURI = hello.Realm
	clientRoles, _ := hello.Details["roles"].(map[string]any)
	if err := sess.OnWelcome(info, "wampd", feature.ParseClientRoles(clientRoles)); err != nil {
		_ = c.ws.Abort(wampproto.ReasonProtocolViolation, wampproto.Dict{})
		return false
	}
	c.sess = sess

	rm.Join(sess)

	details := wampproto.Dict{
		"authid":   info.AuthID,
		"authrole": info.AuthRole,
		"roles":    feature.ProvidedRouterRoles().Dict(),
	}
	if err := c.ws.Send(wampproto.Welcome{Session: sess.ID, Details: details}); err != nil {
		rm.Leave(sess.ID)
		return false
	}
	return true
}

func (c *conn) dispatch(ctx context.Context, msg wampproto.Message) {
	switch m := msg.(type) {
	case wampproto.Subscribe:
		c.handleSubscribe(ctx, m)
	case wampproto.Unsubscribe:
		c.handleUnsubscribe(m)
	case wampproto.Publish:
		c.handlePublish(ctx, m)
	case wampproto.Register:
		c.handleRegister(ctx, m)
	case wampproto.Unregister:
		c.handleUnregister(m)
	case wampproto.Call:
		c.handleCall(ctx, m)
	case wampproto.Cancel:
		c.realm.Dealer.Cancel(c.sess, m)
	case wampproto.Yield:
		c.realm.Dealer.Yield(c.sess, m)
	case wampproto.Error:
		c.realm.Dealer.ErrorFromCallee(c.sess, m)
	default:
		logging.Debug("dropping unexpected message kind", zap.String("realm", c.realm.URI), zap.Int("kind", int(msg.Kind())))
	}
}

// abortOnProtocolViolation sends an ABORT with reason protocol_violation
// when err wraps transport.ErrProtocolViolation (the frame failed
// internal/wampproto's central validation table for arity, field kind,
// or state-legality, per spec.md §4.4/§7). Any other Receive error
// (read/decode failure, closed connection) is left to the caller, which
// simply tears the connection down without a WAMP-level ABORT.
func (c *conn) abortOnProtocolViolation(err error) {
	if errors.Is(err, transport.ErrProtocolViolation) {
		_ = c.ws.Abort(wampproto.ReasonProtocolViolation, wampproto.Dict{"message": err.Error()})
	}
}

func (c *conn) identity() authorize.Identity {
	return authorize.Identity{SessionID: c.sess.ID, AuthID: c.sess.Auth.AuthID, AuthRole: c.sess.Auth.AuthRole}
}

func (c *conn) authorize(ctx context.Context, action authorize.Action, u string, policy uri.MatchPolicy, opts wampproto.Dict) (authorize.Authorization, error) {
	return c.realm.Authorizer.Authorize(ctx, authorize.Request{
		Action:  action,
		Session: c.identity(),
		URI:     u,
		Policy:  policy,
		Options: opts,
		Cache:   true,
	})
}

// matchPolicyFromOptions reads a SUBSCRIBE/REGISTER options dict's
// "match" field, defaulting to exact, per spec.md §4.5/§4.6.
func matchPolicyFromOptions(opts wampproto.Dict) uri.MatchPolicy {
	switch opts["match"] {
	case "prefix":
		return uri.MatchPrefix
	case "wildcard":
		return uri.MatchWildcard
	default:
		return uri.MatchExact
	}
}

func (c *conn) sendAuthorizeError(requestKind wampproto.Kind, request uint64, a authorize.Authorization, callErr error) {
	wampURI, args := authorize.ErrorReply(a, callErr)
	_ = c.sess.Transport.Send(wampproto.Error{
		RequestKind: requestKind,
		Request:     request,
		Details:     wampproto.Dict{},
		URI:         wampURI,
		Args:        args,
	})
}

func (c *conn) handleSubscribe(ctx context.Context, m wampproto.Subscribe) {
	policy := matchPolicyFromOptions(m.Options)
	a, err := c.authorize(ctx, authorize.ActionSubscribe, m.Topic, policy, m.Options)
	if err != nil || !a.Allowed {
		c.sendAuthorizeError(wampproto.KindSubscribe, m.Request, a, err)
		return
	}
	discloseRequested, _ := m.Options["disclose_me"].(bool)
	subID := c.realm.Broker.Subscribe(c.sess, m.Topic, policy, discloseRequested)
	_ = c.sess.Transport.Send(wampproto.Subscribed{Request: m.Request, Subscription: subID})
}

func (c *conn) handleUnsubscribe(m wampproto.Unsubscribe) {
	if !c.realm.Broker.Unsubscribe(c.sess, m.Subscription) {
		_ = c.sess.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindUnsubscribe,
			Request:     m.Request,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorNoSuchSubscription,
		})
		return
	}
	_ = c.sess.Transport.Send(wampproto.Unsubscribed{Request: m.Request})
}

func (c *conn) handlePublish(ctx context.Context, m wampproto.Publish) {
	ctx, span := c.srv.cfg.Tracer.StartPublish(ctx, c.realm.URI, m.Topic)
	defer span.End()

	a, err := c.authorize(ctx, authorize.ActionPublish, m.Topic, uri.MatchExact, m.Options)
	po := broker.ParsePublishOptions(m.Options)
	if metaapi.IsReserved(m.Topic) && !c.realm.Options.MetaTopicPublicationAllowed {
		if po.Acknowledge {
			_ = c.sess.Transport.Send(wampproto.Error{
				RequestKind: wampproto.KindPublish,
				Request:     m.Request,
				Details:     wampproto.Dict{},
				URI:         wampproto.ErrorInvalidURI,
			})
		}
		return
	}
	if err != nil || !a.Allowed {
		if po.Acknowledge {
			c.sendAuthorizeError(wampproto.KindPublish, m.Request, a, err)
		}
		return
	}
	po.Override = a.Disclosure
	pubID := c.realm.Broker.Publish(c.sess, m.Topic, m.Args, m.Kwargs, po)
	if po.Acknowledge {
		_ = c.sess.Transport.Send(wampproto.Published{Request: m.Request, Publication: pubID})
	}
}

func (c *conn) handleRegister(ctx context.Context, m wampproto.Register) {
	if metaapi.IsReserved(m.Procedure) && !c.realm.Options.MetaProcedureRegistrationAllowed {
		_ = c.sess.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindRegister,
			Request:     m.Request,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorInvalidArgument,
		})
		return
	}

	policy := matchPolicyFromOptions(m.Options)
	a, err := c.authorize(ctx, authorize.ActionRegister, m.Procedure, policy, m.Options)
	if err != nil || !a.Allowed {
		c.sendAuthorizeError(wampproto.KindRegister, m.Request, a, err)
		return
	}

	invocation := dealer.InvocationSingle
	switch m.Options["invoke"] {
	case "roundrobin":
		invocation = dealer.InvocationRoundRobin
	case "random":
		invocation = dealer.InvocationRandom
	case "first":
		invocation = dealer.InvocationFirst
	case "last":
		invocation = dealer.InvocationLast
	}
	forwardTimeouts, _ := m.Options["forward_timeouts"].(bool)
	discloseCaller, _ := m.Options["disclose_caller"].(bool)

	regID, err := c.realm.Dealer.Register(c.sess, m.Procedure, policy, invocation, forwardTimeouts, discloseCaller)
	if err != nil {
		_ = c.sess.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindRegister,
			Request:     m.Request,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorAlreadyExists,
		})
		return
	}
	_ = c.sess.Transport.Send(wampproto.Registered{Request: m.Request, Registration: regID})
}

func (c *conn) handleUnregister(m wampproto.Unregister) {
	if !c.realm.Dealer.Unregister(c.sess, m.Registration) {
		_ = c.sess.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindUnregister,
			Request:     m.Request,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorNoSuchRegistration,
		})
		return
	}
	_ = c.sess.Transport.Send(wampproto.Unregistered{Request: m.Request})
}

func (c *conn) handleCall(ctx context.Context, m wampproto.Call) {
	ctx, span := c.srv.cfg.Tracer.StartCall(ctx, c.realm.URI, m.Procedure)
	defer span.End()

	if result, errReply, handled := c.realm.RouteCall(m); handled {
		if errReply != nil {
			_ = c.sess.Transport.Send(*errReply)
			return
		}
		_ = c.sess.Transport.Send(result)
		return
	}

	a, err := c.authorize(ctx, authorize.ActionCall, m.Procedure, uri.MatchExact, m.Options)
	if err != nil || !a.Allowed {
		c.sendAuthorizeError(wampproto.KindCall, m.Request, a, err)
		return
	}

	discloseMe, _ := m.Options["disclose_me"].(bool)
	if _, err := c.realm.Dealer.Call(c.sess, m, discloseMe, a.Disclosure); err != nil {
		_ = c.sess.Transport.Send(wampproto.Error{
			RequestKind: wampproto.KindCall,
			Request:     m.Request,
			Details:     wampproto.Dict{},
			URI:         wampproto.ErrorNoSuchProcedure,
		})
	}
}
