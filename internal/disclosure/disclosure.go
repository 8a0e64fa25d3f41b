// Package disclosure resolves whether a producer's identity (caller or
// publisher) is revealed to a consumer (callee or subscriber), per the
// realm's configured disclosure policy, any per-authorization override,
// and the flags each side set.
package disclosure

import "fmt"

// Policy is the disclosure vocabulary shared by realm configuration and
// per-authorization overrides.
type Policy int

const (
	// PolicyPreset defers to context: at the realm level it behaves as
	// PolicyProducer; at the authorization-override level it defers back
	// to the realm's own policy.
	PolicyPreset Policy = iota
	PolicyProducer
	PolicyConsumer
	PolicyEither
	PolicyBoth
	PolicyReveal
	PolicyConceal
)

func (p Policy) String() string {
	switch p {
	case PolicyPreset:
		return "preset"
	case PolicyProducer:
		return "producer"
	case PolicyConsumer:
		return "consumer"
	case PolicyEither:
		return "either"
	case PolicyBoth:
		return "both"
	case PolicyReveal:
		return "reveal"
	case PolicyConceal:
		return "conceal"
	default:
		return "unknown"
	}
}

// ErrDiscloseMeDisallowed is returned by Resolve when the resolver is
// strict and the originator requested disclosure under a policy that
// forbids it.
type ErrDiscloseMeDisallowed struct {
	Policy Policy
}

func (e *ErrDiscloseMeDisallowed) Error() string {
	return fmt.Sprintf("disclosure: disclose_me disallowed under %s policy", e.Policy)
}

// Resolver resolves producer-identity disclosure for a realm.
type Resolver struct {
	// RealmPolicy is the realm-wide default policy. PolicyPreset at this
	// level is interpreted as PolicyProducer.
	RealmPolicy Policy
	// Strict, when true, turns a disallowed disclose_me request into
	// ErrDiscloseMeDisallowed instead of silently concealing.
	Strict bool
}

// Resolve decides whether to disclose the originator's identity.
//
//   - override is the optional per-authorization policy override;
//     pass PolicyPreset to mean "no override, use the realm policy".
//   - originatorWantsDisclosed is the producer's own disclose_me flag
//     (disclose_me on the CALL/PUBLISH options).
//   - consumerWantsDisclosed is the consumer's registration/subscription
//     flag (disclose_caller set at REGISTER, disclose_me set at SUBSCRIBE).
func (r Resolver) Resolve(override Policy, originatorWantsDisclosed, consumerWantsDisclosed bool) (bool, error) {
	effective := r.effectivePolicy(override)

	var disclose bool
	switch effective {
	case PolicyReveal:
		disclose = true
	case PolicyConceal:
		disclose = false
	case PolicyProducer:
		disclose = originatorWantsDisclosed
	case PolicyConsumer:
		disclose = consumerWantsDisclosed
	case PolicyEither:
		disclose = originatorWantsDisclosed || consumerWantsDisclosed
	case PolicyBoth:
		disclose = originatorWantsDisclosed && consumerWantsDisclosed
	default:
		disclose = originatorWantsDisclosed
	}

	if r.Strict && originatorWantsDisclosed && !disclose {
		return false, &ErrDiscloseMeDisallowed{Policy: effective}
	}
	return disclose, nil
}

// effectivePolicy folds preset handling: preset at the override level
// defers to the realm policy; preset at the realm level means producer.
func (r Resolver) effectivePolicy(override Policy) Policy {
	if override != PolicyPreset {
		return override
	}
	if r.RealmPolicy == PolicyPreset {
		return PolicyProducer
	}
	return r.RealmPolicy
}
