package admission

import "time"

// Handle is returned to the caller on a successful Accept; it lets the
// session-establishment code report handshake progress and inbound
// traffic so the monitoring loop can enforce the hello/challenge/
// stale/overstay deadlines, and lets the caller release the connection
// when the session ends.
type Handle struct {
	admitter *Admitter
	conn     *conn
}

// OnHelloReceived marks the hello-timeout deadline satisfied.
func (h *Handle) OnHelloReceived() {
	h.conn.mu.Lock()
	h.conn.helloReceived = true
	h.conn.lastMessageAt = time.Now()
	h.conn.mu.Unlock()
}

// OnChallengeIssued enables the challenge-timeout check. The monitor
// measures that deadline from the connection's admission time
// (HelloTimeout+ChallengeTimeout), not from the moment the CHALLENGE
// was issued; the issue time is not recorded.
func (h *Handle) OnChallengeIssued() {
	h.conn.mu.Lock()
	h.conn.challengeIssued = true
	h.conn.mu.Unlock()
}

// OnAuthenticated marks the session established, disabling the
// hello/challenge deadlines and the "unauthenticated" staleness check
// used by soft-limit eviction.
func (h *Handle) OnAuthenticated() {
	h.conn.mu.Lock()
	h.conn.authenticated = true
	h.conn.lastMessageAt = time.Now()
	h.conn.mu.Unlock()
}

// Touch records an inbound WAMP message, resetting the stale-timeout
// clock.
func (h *Handle) Touch() {
	h.conn.mu.Lock()
	h.conn.lastMessageAt = time.Now()
	h.conn.mu.Unlock()
}

// Release stops tracking the connection, called once its session has
// closed through any path.
func (h *Handle) Release() {
	h.admitter.untrack(h.conn.id)
}
