// Package uri implements WAMP URI tokenization, validation, and match
// policies over dot-separated token sequences.
package uri

import "strings"

// MatchPolicy identifies how a stored pattern is compared against a
// published/subscribed URI.
type MatchPolicy int

const (
	MatchExact MatchPolicy = iota
	MatchPrefix
	MatchWildcard
)

func (p MatchPolicy) String() string {
	switch p {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// ValidationPolicy controls which characters are accepted in a URI token.
type ValidationPolicy int

const (
	// ValidationRelaxed forbids '#' and whitespace.
	ValidationRelaxed ValidationPolicy = iota
	// ValidationStrict permits only [a-z0-9_].
	ValidationStrict
)

// Tokenize splits a URI on '.'. A trailing '.' yields an empty trailing
// token; an empty token anywhere denotes a wildcard position for pattern
// URIs.
func Tokenize(u string) []string {
	return strings.Split(u, ".")
}

// Join reassembles tokens into a dotted URI.
func Join(tokens []string) string {
	return strings.Join(tokens, ".")
}

// Valid reports whether uri satisfies the given validation policy. Pattern
// URIs (containing empty tokens) are validated token-by-token, skipping
// empty tokens since they represent wildcard positions.
func Valid(u string, policy ValidationPolicy) bool {
	if u == "" {
		return false
	}
	for _, tok := range Tokenize(u) {
		if tok == "" {
			continue
		}
		if !validToken(tok, policy) {
			return false
		}
	}
	return true
}

func validToken(tok string, policy ValidationPolicy) bool {
	for _, r := range tok {
		switch policy {
		case ValidationStrict:
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
				return false
			}
		default: // ValidationRelaxed
			if r == '#' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return false
			}
		}
	}
	return true
}

// Matches reports whether the candidate uri matches the given pattern
// tokens under the given policy.
func Matches(patternTokens []string, policy MatchPolicy, uriTokens []string) bool {
	switch policy {
	case MatchExact:
		return equalTokens(patternTokens, uriTokens)
	case MatchPrefix:
		if len(patternTokens) > len(uriTokens) {
			return false
		}
		for i, t := range patternTokens {
			if t != uriTokens[i] {
				return false
			}
		}
		return true
	case MatchWildcard:
		if len(patternTokens) != len(uriTokens) {
			return false
		}
		for i, t := range patternTokens {
			if t == "" {
				continue
			}
			if t != uriTokens[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
