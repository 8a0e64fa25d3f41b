package authorize

import "context"

// staticKey scopes a fixed allow/deny rule by authrole and action.
type staticKey struct {
	authRole string
	action   Action
}

// Static is a fixed allow/deny table keyed by authrole and action,
// useful in tests and for embedders that don't need a dynamic
// authorizer (SPEC_FULL.md §4.8).
type Static struct {
	rules   map[staticKey]bool
	// Default is used when no rule matches authRole+action.
	Default bool
}

// NewStatic creates an empty Static authorizer that denies by default.
func NewStatic() *Static {
	return &Static{rules: make(map[staticKey]bool)}
}

// Allow records that authRole is permitted to perform action.
func (s *Static) Allow(authRole string, action Action) *Static {
	s.rules[staticKey{authRole, action}] = true
	return s
}

// Deny records that authRole is forbidden from performing action.
func (s *Static) Deny(authRole string, action Action) *Static {
	s.rules[staticKey{authRole, action}] = false
	return s
}

func (s *Static) Authorize(_ context.Context, req Request) (Authorization, error) {
	if allowed, ok := s.rules[staticKey{req.Session.AuthRole, req.Action}]; ok {
		return Authorization{Allowed: allowed}, nil
	}
	return Authorization{Allowed: s.Default}, nil
}
