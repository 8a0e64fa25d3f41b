package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/wudi/wampd/internal/codec"
	"github.com/wudi/wampd/internal/wampproto"
)

// WebSocketConfig carries the per-listener tunables spec.md §6 leaves to
// the transport binding: the frame size limit applied at Admit and the
// write deadline applied to every Send. Receive sets no idle deadline of
// its own, and PingInterval is carried but this binding sends no pings.
type WebSocketConfig struct {
	ReadLimit       int64
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	CompressionMode websocket.CompressionMode
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		ReadLimit:    1 << 20,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// WebSocket is the Transport binding spec.md §6 names: it upgrades an
// HTTP request to a WebSocket connection, negotiates one of the codecs
// in internal/codec via the WAMP subprotocol names, and frames every
// Send/Receive through that codec plus internal/wampproto's raw-array
// mapping.
type WebSocket struct {
	w   http.ResponseWriter
	r   *http.Request
	cfg WebSocketConfig

	conn    *websocket.Conn
	codec   codec.Codec
	msgType websocket.MessageType
}

func NewWebSocket(w http.ResponseWriter, r *http.Request, cfg WebSocketConfig) *WebSocket {
	return &WebSocket{w: w, r: r, cfg: cfg}
}

func (t *WebSocket) Admit(ctx context.Context) (int, error) {
	conn, err := websocket.Accept(t.w, t.r, &websocket.AcceptOptions{
		Subprotocols:    codec.Subprotocols(),
		CompressionMode: t.cfg.CompressionMode,
	})
	if err != nil {
		// websocket.Accept writes its own HTTP error response on
		// failure, so the caller must not write one of its own.
		return 0, fmt.Errorf("%w: %v", ErrResponded, err)
	}

	negotiated, ok := codec.BySubprotocol(conn.Subprotocol())
	if !ok {
		conn.Close(websocket.StatusProtocolError, "no wamp subprotocol negotiated")
		return 0, fmt.Errorf("transport: no codec for subprotocol %q", conn.Subprotocol())
	}

	if t.cfg.ReadLimit > 0 {
		conn.SetReadLimit(t.cfg.ReadLimit)
	}

	t.conn = conn
	t.codec = negotiated
	if negotiated.Binary() {
		t.msgType = websocket.MessageBinary
	} else {
		t.msgType = websocket.MessageText
	}
	return int(negotiated.ID()), nil
}

func (t *WebSocket) Send(msg wampproto.Message) error {
	raw := wampproto.ToRaw(msg)
	data, err := t.codec.Encode(raw)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if t.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.WriteTimeout)
		defer cancel()
	}
	return t.conn.Write(ctx, t.msgType, data)
}

func (t *WebSocket) Receive(ctx context.Context, state wampproto.State) (wampproto.Message, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := t.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if _, err := wampproto.Validate(raw, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return wampproto.FromRaw(raw)
}

func (t *WebSocket) Abort(reason string, details wampproto.Dict) error {
	_ = t.Send(wampproto.Abort{Reason: reason, Details: details})
	return t.conn.Close(websocket.StatusProtocolError, reason)
}

func (t *WebSocket) Shutdown(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}

func (t *WebSocket) Close() error {
	return t.conn.CloseNow()
}
