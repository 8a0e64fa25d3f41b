package metaapi

import "testing"

func TestReplayBufferRecentOrderAndEviction(t *testing.T) {
	b := newReplayBuffer(2)
	b.record("a", nil, nil)
	b.record("b", nil, nil)
	b.record("c", nil, nil)

	recent := b.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("expected capacity-bounded buffer of 2, got %d", len(recent))
	}
	if recent[0].Topic != "b" || recent[1].Topic != "c" {
		t.Fatalf("expected oldest-first [b c], got %+v", recent)
	}
}

func TestReplayBufferRecentLimit(t *testing.T) {
	b := newReplayBuffer(10)
	b.record("a", nil, nil)
	b.record("b", nil, nil)
	b.record("c", nil, nil)

	recent := b.Recent(1)
	if len(recent) != 1 || recent[0].Topic != "c" {
		t.Fatalf("expected only the most recent event, got %+v", recent)
	}
}

func TestRegistryRecordsPublishedEventsToReplayBuffer(t *testing.T) {
	reg, dir := newRegistry()
	sess := newSession(1)
	dir.sessions[1] = sess

	reg.EmitSessionJoin(sess)
	reg.EmitSessionLeave(1)

	recent := reg.RecentEvents(0)
	if len(recent) != 2 {
		t.Fatalf("expected 2 recorded events, got %d", len(recent))
	}
	if recent[0].Topic != "wamp.session.on_join" || recent[1].Topic != "wamp.session.on_leave" {
		t.Fatalf("unexpected event order: %+v", recent)
	}
}
