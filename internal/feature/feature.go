// Package feature implements WAMP role feature announcement as typed
// bitflags, grounded on cppwamp's ClientFeatures/RouterFeatures
// (_examples/original_source/cppwamp/include/cppwamp/features.hpp).
package feature

// Flags is a bitmask of features for one role.
type Flags uint32

const (
	CallCanceling Flags = 1 << iota
	CallTimeout
	CallTrustLevels
	CallerIdentification
	PatternBasedRegistration
	ProgressiveCallInvocations
	ProgressiveCallResults
	PublisherExclusion
	PublisherIdentification
	SubscriberBlackWhiteListing
	PatternBasedSubscription
	PublicationTrustLevels
)

// Supports reports whether all bits in required are present in f.
func (f Flags) Supports(required Flags) bool {
	return f&required == required
}

// names maps each wire feature name to its flag, plus the legacy aliases
// spec.md §4.3 requires accepting on input only:
//   - "progressive_calls" aliases "progressive_call_invocations"
//   - "call_cancelling" aliases "call_canceling"
var names = map[string]Flags{
	"call_canceling":                 CallCanceling,
	"call_cancelling":                CallCanceling, // legacy alias, input only
	"call_timeout":                   CallTimeout,
	"call_trustlevels":               CallTrustLevels,
	"caller_identification":          CallerIdentification,
	"pattern_based_registration":     PatternBasedRegistration,
	"progressive_call_invocations":   ProgressiveCallInvocations,
	"progressive_calls":              ProgressiveCallInvocations, // legacy alias, input only
	"progressive_call_results":       ProgressiveCallResults,
	"publisher_exclusion":            PublisherExclusion,
	"publisher_identification":       PublisherIdentification,
	"subscriber_blackwhite_listing":  SubscriberBlackWhiteListing,
	"pattern_based_subscription":     PatternBasedSubscription,
	"publication_trustlevels":        PublicationTrustLevels,
}

// canonicalOrder lists the non-alias wire names each flag emits as, in a
// stable order, used when advertising router-supported features.
var canonicalOrder = []struct {
	name string
	flag Flags
}{
	{"call_canceling", CallCanceling},
	{"call_timeout", CallTimeout},
	{"call_trustlevels", CallTrustLevels},
	{"caller_identification", CallerIdentification},
	{"pattern_based_registration", PatternBasedRegistration},
	{"progressive_call_invocations", ProgressiveCallInvocations},
	{"progressive_call_results", ProgressiveCallResults},
	{"publisher_exclusion", PublisherExclusion},
	{"publisher_identification", PublisherIdentification},
	{"subscriber_blackwhite_listing", SubscriberBlackWhiteListing},
	{"pattern_based_subscription", PatternBasedSubscription},
	{"publication_trustlevels", PublicationTrustLevels},
}

// parseRoleDict extracts the feature sub-dictionary for roleName out of a
// decoded `roles` WAMP dict (role-name -> {features: {feature-name: bool}}).
// A feature is "truthy" if present and not explicitly false/0/"".
func parseRoleDict(roles map[string]any, roleName string) Flags {
	var f Flags
	roleVal, ok := roles[roleName]
	if !ok {
		return 0
	}
	roleDict, ok := roleVal.(map[string]any)
	if !ok {
		return 0
	}
	featuresVal, ok := roleDict["features"]
	if !ok {
		return 0
	}
	featuresDict, ok := featuresVal.(map[string]any)
	if !ok {
		return 0
	}
	for name, flag := range names {
		if truthy(featuresDict[name]) {
			f |= flag
		}
	}
	return f
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// emit renders f as the `features` sub-dictionary in canonical name order,
// omitting aliases.
func emit(f Flags) map[string]any {
	out := make(map[string]any, len(canonicalOrder))
	for _, c := range canonicalOrder {
		if f.Supports(c.flag) {
			out[c.name] = true
		}
	}
	return out
}

// ClientRoles holds the feature flags announced by a connecting client
// for each of its four client-side roles.
type ClientRoles struct {
	Callee     Flags
	Caller     Flags
	Publisher  Flags
	Subscriber Flags
}

// ParseClientRoles parses a HELLO `roles` dictionary into ClientRoles.
// Unknown roles and unknown features are ignored.
func ParseClientRoles(roles map[string]any) ClientRoles {
	return ClientRoles{
		Callee:     parseRoleDict(roles, "callee"),
		Caller:     parseRoleDict(roles, "caller"),
		Publisher:  parseRoleDict(roles, "publisher"),
		Subscriber: parseRoleDict(roles, "subscriber"),
	}
}

// RouterRoles holds the feature flags for the router's own broker/dealer
// roles, used to build the WELCOME `roles` dictionary.
type RouterRoles struct {
	Broker Flags
	Dealer Flags
}

// ProvidedRouterRoles returns the full feature set this router
// implementation supports, used to populate WELCOME.
func ProvidedRouterRoles() RouterRoles {
	return RouterRoles{
		Broker: PatternBasedSubscription | PublicationTrustLevels | PublisherExclusion |
			PublisherIdentification | SubscriberBlackWhiteListing,
		Dealer: CallCanceling | CallTimeout | CallTrustLevels | CallerIdentification |
			PatternBasedRegistration | ProgressiveCallInvocations | ProgressiveCallResults,
	}
}

// Dict renders the `roles` dictionary advertised in WELCOME.
func (r RouterRoles) Dict() map[string]any {
	return map[string]any{
		"broker": map[string]any{"features": emit(r.Broker)},
		"dealer": map[string]any{"features": emit(r.Dealer)},
	}
}
