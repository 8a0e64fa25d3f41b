package disclosure

import (
	"errors"
	"testing"
)

func TestResolvePolicies(t *testing.T) {
	cases := []struct {
		name              string
		realmPolicy       Policy
		override          Policy
		originatorWants   bool
		consumerWants     bool
		wantDisclose      bool
	}{
		{"reveal always", PolicyProducer, PolicyReveal, false, false, true},
		{"conceal never", PolicyProducer, PolicyConceal, true, true, false},
		{"producer iff originator", PolicyProducer, PolicyPreset, true, false, true},
		{"producer false when originator unset", PolicyProducer, PolicyPreset, false, true, false},
		{"consumer iff consumer flag", PolicyConsumer, PolicyPreset, true, false, false},
		{"consumer true when consumer flag set", PolicyConsumer, PolicyPreset, false, true, true},
		{"either true if any set", PolicyEither, PolicyPreset, true, false, true},
		{"either false if none set", PolicyEither, PolicyPreset, false, false, false},
		{"both true only if both set", PolicyBoth, PolicyPreset, true, true, true},
		{"both false if only one set", PolicyBoth, PolicyPreset, true, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := Resolver{RealmPolicy: c.realmPolicy}
			got, err := r.Resolve(c.override, c.originatorWants, c.consumerWants)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.wantDisclose {
				t.Fatalf("got %v, want %v", got, c.wantDisclose)
			}
		})
	}
}

func TestPresetAtRealmLevelIsProducer(t *testing.T) {
	r := Resolver{RealmPolicy: PolicyPreset}
	got, err := r.Resolve(PolicyPreset, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("expected realm-level preset to behave as producer (disclose on originator flag)")
	}
}

func TestPresetAtAuthorizationLevelUsesRealmPolicy(t *testing.T) {
	r := Resolver{RealmPolicy: PolicyConceal}
	got, err := r.Resolve(PolicyPreset, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("expected authorization-level preset to defer to realm's conceal policy")
	}
}

func TestStrictDisallowsDiscloseMe(t *testing.T) {
	r := Resolver{RealmPolicy: PolicyConceal, Strict: true}
	_, err := r.Resolve(PolicyPreset, true, false)
	var target *ErrDiscloseMeDisallowed
	if !errors.As(err, &target) {
		t.Fatalf("expected ErrDiscloseMeDisallowed, got %v", err)
	}
}

func TestNonStrictSilentlyConceals(t *testing.T) {
	r := Resolver{RealmPolicy: PolicyConceal, Strict: false}
	got, err := r.Resolve(PolicyPreset, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("expected concealment without error in non-strict mode")
	}
}
