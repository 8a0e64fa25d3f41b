// Package transport implements the Transport interface spec.md §6
// consumes: admission/handshake, framed send/receive of typed WAMP
// messages, and abort/shutdown/close, with WebSocket as the concrete
// binding over the codecs in internal/codec.
package transport

import (
	"context"
	"errors"

	"github.com/wudi/wampd/internal/wampproto"
)

// Transport is the full per-connection surface spec.md §6 describes.
// It is a structural superset of internal/admission.Transport, so any
// implementation here satisfies admission.Admitter.Accept without
// either package depending on the other's concrete type.
type Transport interface {
	// Admit completes the transport-specific handshake (protocol
	// upgrade, codec negotiation) and returns the negotiated codec id.
	Admit(ctx context.Context) (codecID int, err error)
	Send(msg wampproto.Message) error
	// Receive decodes the next frame and checks it against
	// internal/wampproto's central validation table (arity, field
	// kinds, and state-legality) for the caller's current session
	// state, per spec.md §4.4. A table violation is reported as an
	// error wrapping ErrProtocolViolation rather than a Message.
	Receive(ctx context.Context, state wampproto.State) (wampproto.Message, error)
	Abort(reason string, details wampproto.Dict) error
	Shutdown(reason string) error
	Close() error
}

// ErrResponded marks an Admit failure where the transport already
// wrote a non-WAMP response (e.g. an HTTP error page) of its own.
var ErrResponded = errors.New("transport: already responded")

// ErrClosed marks a Send/Receive on a transport that has been closed or
// has shut down. WebSocket does not return it: its Send/Receive pass on
// the underlying websocket library's error instead.
var ErrClosed = errors.New("transport: closed")

// ErrProtocolViolation marks a Receive failure where the frame decoded
// cleanly but failed internal/wampproto.Validate: wrong arity, a field
// of the wrong kind, an unknown message kind, or a message not legal
// in the caller's current session state. Callers must abort the
// session with wampproto.ReasonProtocolViolation on this error.
var ErrProtocolViolation = errors.New("transport: protocol violation")
