package main

import (
	"context"
	"testing"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/config"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/disclosure"
)

func TestParseDisclosurePolicy(t *testing.T) {
	cases := map[string]disclosure.Policy{
		"":        disclosure.PolicyPreset,
		"preset":  disclosure.PolicyPreset,
		"producer": disclosure.PolicyProducer,
		"consumer": disclosure.PolicyConsumer,
		"either":  disclosure.PolicyEither,
		"both":    disclosure.PolicyBoth,
		"reveal":  disclosure.PolicyReveal,
		"conceal": disclosure.PolicyConceal,
	}
	for in, want := range cases {
		got, err := parseDisclosurePolicy(in)
		if err != nil {
			t.Fatalf("parseDisclosurePolicy(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseDisclosurePolicy(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := parseDisclosurePolicy("bogus"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestParseTimestampPrecision(t *testing.T) {
	cases := map[string]int{
		"":   0,
		"s":  0,
		"ms": 3,
		"us": 6,
		"ns": 9,
		"9":  9,
	}
	for in, want := range cases {
		got, err := parseTimestampPrecision(in)
		if err != nil {
			t.Fatalf("parseTimestampPrecision(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseTimestampPrecision(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := parseTimestampPrecision("bogus"); err == nil {
		t.Fatal("expected error for unparseable precision")
	}
}

func TestRealmOptionsTranslatesTimeoutForwarding(t *testing.T) {
	opts, err := realmOptions(config.RealmConfig{TimeoutForwarding: true})
	if err != nil {
		t.Fatalf("realmOptions: %v", err)
	}
	if opts.TimeoutForwarding != dealer.ForwardPerRegistration {
		t.Fatalf("expected ForwardPerRegistration, got %v", opts.TimeoutForwarding)
	}

	opts, err = realmOptions(config.RealmConfig{})
	if err != nil {
		t.Fatalf("realmOptions: %v", err)
	}
	if opts.TimeoutForwarding != dealer.ForwardNever {
		t.Fatalf("expected ForwardNever, got %v", opts.TimeoutForwarding)
	}
}

func TestRealmAuthorizerSelection(t *testing.T) {
	ctx := context.Background()
	req := authorize.Request{Action: authorize.ActionCall}

	a, err := realmAuthorizer(config.RealmConfig{Authorizer: "deny_all"}).Authorize(ctx, req)
	if err != nil || a.Allowed {
		t.Fatalf("deny_all: expected denied, got %+v, err %v", a, err)
	}

	a, err = realmAuthorizer(config.RealmConfig{Authorizer: "allow_all"}).Authorize(ctx, req)
	if err != nil || !a.Allowed {
		t.Fatalf("allow_all: expected allowed, got %+v, err %v", a, err)
	}

	a, err = realmAuthorizer(config.RealmConfig{Authorizer: "ruleset"}).Authorize(ctx, req)
	if err != nil || a.Allowed {
		t.Fatalf("ruleset with no rules: expected denied by default, got %+v, err %v", a, err)
	}
}
