package authexchange

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/wampd/internal/wampproto"
)

type welcomerFunc func(ex *Exchange)

func (f welcomerFunc) Authenticate(ex *Exchange) { f(ex) }

func TestRunDirectWelcome(t *testing.T) {
	ex := New(wampproto.Hello{Realm: "r1"})
	auth := welcomerFunc(func(ex *Exchange) {
		ex.Welcome(AuthInfo{AuthID: "alice", AuthRole: "user"})
	})
	o, err := Run(context.Background(), auth, nil, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Kind != OutcomeWelcome || o.Info.AuthID != "alice" {
		t.Fatalf("unexpected outcome: %+v", o)
	}
}

func TestRunChallengeThenAuthenticateRound(t *testing.T) {
	ex := New(wampproto.Hello{Realm: "r1"})
	round := 0
	auth := welcomerFunc(func(ex *Exchange) {
		round++
		if round == 1 {
			ex.Challenge(wampproto.Challenge{AuthMethod: "wampcra"}, "note1")
			return
		}
		if ex.Note() != "note1" {
			t.Fatalf("expected note preserved across round, got %v", ex.Note())
		}
		ex.Welcome(AuthInfo{AuthID: "bob"})
	})

	o1, err := Run(context.Background(), auth, nil, ex)
	if err != nil || o1.Kind != OutcomeChallenge {
		t.Fatalf("expected challenge outcome, got %+v %v", o1, err)
	}
	if ex.ChallengeCount() != 1 {
		t.Fatalf("expected challenge count 1, got %d", ex.ChallengeCount())
	}

	ex.SetAuthentication(wampproto.Authenticate{Signature: "sig"})
	o2, err := Run(context.Background(), auth, nil, ex)
	if err != nil || o2.Kind != OutcomeWelcome || o2.Info.AuthID != "bob" {
		t.Fatalf("expected welcome outcome, got %+v %v", o2, err)
	}
}

func TestRunReject(t *testing.T) {
	ex := New(wampproto.Hello{})
	auth := welcomerFunc(func(ex *Exchange) {
		ex.Reject("authentication_failed")
	})
	o, err := Run(context.Background(), auth, nil, ex)
	if err != nil || o.Kind != OutcomeReject || o.Reason != "authentication_failed" {
		t.Fatalf("unexpected outcome: %+v %v", o, err)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ex := New(wampproto.Hello{})
	auth := welcomerFunc(func(ex *Exchange) {
		// Never calls Challenge/Welcome/Reject; Run must still return via ctx.
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, auth, nil, ex)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type postingExecutor struct{ posted int }

func (p *postingExecutor) Post(f func()) { p.posted++; f() }

func TestRunPostsOntoExecutorWhenBound(t *testing.T) {
	ex := New(wampproto.Hello{})
	exec := &postingExecutor{}
	auth := welcomerFunc(func(ex *Exchange) {
		ex.Welcome(AuthInfo{AuthID: "posted"})
	})
	o, err := Run(context.Background(), auth, exec, ex)
	if err != nil || o.Info.AuthID != "posted" {
		t.Fatalf("unexpected outcome: %+v %v", o, err)
	}
	if exec.posted != 1 {
		t.Fatalf("expected executor used once, got %d", exec.posted)
	}
}

func TestAnonymousWelcomesWithFixedRole(t *testing.T) {
	ex := New(wampproto.Hello{})
	a := &Anonymous{AuthRole: "guest", RNG: func() uint64 { return 42 }}
	o, err := Run(context.Background(), a, nil, ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Kind != OutcomeWelcome || o.Info.AuthRole != "guest" {
		t.Fatalf("unexpected outcome: %+v", o)
	}
	if o.Info.AuthID != "anonymous-2a" {
		t.Fatalf("expected deterministic authid from fixed RNG, got %s", o.Info.AuthID)
	}
}

func TestAnonymousDefaultsToAnonymousRole(t *testing.T) {
	ex := New(wampproto.Hello{})
	a := &Anonymous{RNG: func() uint64 { return 1 }}
	o, _ := Run(context.Background(), a, nil, ex)
	if o.Info.AuthRole != "anonymous" {
		t.Fatalf("expected default role anonymous, got %s", o.Info.AuthRole)
	}
}
