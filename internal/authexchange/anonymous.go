package authexchange

import (
	"math/rand"
	"strconv"
	"sync"
)

// Anonymous immediately welcomes every session under a fixed authrole,
// assigning a random per-session authid. Grounded on cppwamp's
// AnonymousAuthenticator (authenticators/anonymousauthenticator.hpp);
// used as the default authenticator when a server is configured
// without one (SPEC_FULL.md §4.4).
type Anonymous struct {
	// AuthRole defaults to "anonymous" when empty.
	AuthRole string
	// RNG generates the random suffix for each authid; defaults to a
	// package-level math/rand source when nil.
	RNG func() uint64

	mu sync.Mutex
}

func (a *Anonymous) Authenticate(ex *Exchange) {
	role := a.AuthRole
	if role == "" {
		role = "anonymous"
	}
	ex.Welcome(AuthInfo{
		AuthID:   "anonymous-" + strconv.FormatUint(a.next(), 16),
		AuthRole: role,
		Method:   "anonymous",
	})
}

func (a *Anonymous) next() uint64 {
	if a.RNG != nil {
		return a.RNG()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return rand.Uint64()
}
