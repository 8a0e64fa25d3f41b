package session

import (
	"errors"
	"testing"

	"github.com/wudi/wampd/internal/feature"
	"github.com/wudi/wampd/internal/wampproto"
)

type noopTransport struct{ sent []wampproto.Message }

func (t *noopTransport) Send(msg wampproto.Message) error { t.sent = append(t.sent, msg); return nil }
func (t *noopTransport) Close(string) error                { return nil }

func TestNewSessionStartsEstablishing(t *testing.T) {
	s := New(1, &noopTransport{})
	if s.State() != wampproto.StateEstablishing {
		t.Fatalf("expected establishing, got %v", s.State())
	}
}

func TestFullLifecycleViaChallenge(t *testing.T) {
	s := New(1, &noopTransport{})
	if err := s.OnChallenge(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != wampproto.StateAuthenticating {
		t.Fatalf("expected authenticating, got %v", s.State())
	}
	if err := s.OnWelcome(AuthInfo{AuthID: "x"}, "agent/1.0", feature.ClientRoles{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != wampproto.StateEstablished {
		t.Fatalf("expected established, got %v", s.State())
	}
	if s.Auth.AuthID != "x" || s.Agent != "agent/1.0" {
		t.Fatalf("expected identity recorded, got %+v %s", s.Auth, s.Agent)
	}
	if err := s.BeginShutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != wampproto.StateClosed {
		t.Fatalf("expected closed, got %v", s.State())
	}
}

func TestDirectWelcomeWithoutChallenge(t *testing.T) {
	s := New(1, &noopTransport{})
	if err := s.OnWelcome(AuthInfo{}, "", feature.ClientRoles{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != wampproto.StateEstablished {
		t.Fatalf("expected established, got %v", s.State())
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	s := New(1, &noopTransport{})
	if err := s.Close(); err == nil {
		t.Fatal("expected error closing an establishing (non-shutting-down) session")
	}
	var target *ErrInvalidTransition
	if err := s.Close(); !errors.As(err, &target) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFailFromAnyState(t *testing.T) {
	s := New(1, &noopTransport{})
	s.Fail()
	if s.State() != wampproto.StateFailed {
		t.Fatalf("expected failed, got %v", s.State())
	}
}

func TestNextCalleeRequestIDMonotonic(t *testing.T) {
	s := New(1, &noopTransport{})
	a := s.NextCalleeRequestID()
	b := s.NextCalleeRequestID()
	if b != a+1 {
		t.Fatalf("expected monotonic increments, got %d then %d", a, b)
	}
}
