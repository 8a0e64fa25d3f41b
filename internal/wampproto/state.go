package wampproto

// State is a session lifecycle state, per the HELLO/CHALLENGE/WELCOME/
// ABORT/GOODBYE state machine. The validation table uses it to decide
// which message kinds are legal to receive in which state.
type State int

const (
	// StateEstablishing covers the session from accepted transport
	// through HELLO receipt up to WELCOME or ABORT; there is no separate
	// pre-HELLO state in the session's public state enumeration
	// (spec.md §4.1 lists exactly these six states).
	StateEstablishing State = iota
	StateAuthenticating
	StateEstablished
	StateShuttingDown
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEstablishing:
		return "establishing"
	case StateAuthenticating:
		return "authenticating"
	case StateEstablished:
		return "established"
	case StateShuttingDown:
		return "shutting-down"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
