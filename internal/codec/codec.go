// Package codec implements the wire encoders spec.md §6 names as the
// expected ecosystem: JSON, MsgPack, and CBOR. A Codec turns a byte
// buffer into the sequence of Variant values (wampproto.List/Dict and
// their scalar elements) a message's wire array is made of, and back.
package codec

import "github.com/wudi/wampd/internal/wampproto"

// ID is the WAMP-registered codec identifier used both in RawSocket's
// handshake byte and (via Subprotocol) in the WebSocket subprotocol
// name.
type ID int

const (
	IDJSON    ID = 1
	IDMsgPack ID = 2
	IDCBOR    ID = 3
)

// Codec encodes a decoded wire array to bytes and back. Binary
// reports whether the codec requires a binary transport frame (as
// opposed to JSON's text frame).
type Codec interface {
	ID() ID
	Subprotocol() string
	Binary() bool
	Encode(raw wampproto.List) ([]byte, error)
	Decode(data []byte) (wampproto.List, error)
}

// registry is the fixed set of codecs this router ships with, keyed
// both by ID and by WebSocket subprotocol name.
var (
	byID          = map[ID]Codec{}
	bySubprotocol = map[string]Codec{}
)

func register(c Codec) {
	byID[c.ID()] = c
	bySubprotocol[c.Subprotocol()] = c
}

func init() {
	register(JSON{})
	register(MsgPack{})
	register(CBOR{})
}

// ByID returns the registered codec for id.
func ByID(id ID) (Codec, bool) {
	c, ok := byID[id]
	return c, ok
}

// BySubprotocol returns the registered codec for a negotiated
// WebSocket subprotocol name (e.g. "wamp.2.json").
func BySubprotocol(name string) (Codec, bool) {
	c, ok := bySubprotocol[name]
	return c, ok
}

// Subprotocols returns every registered codec's subprotocol name, in
// a stable order (JSON, MsgPack, CBOR), for offering in a WebSocket
// upgrade's Sec-WebSocket-Protocol list.
func Subprotocols() []string {
	return []string{JSON{}.Subprotocol(), MsgPack{}.Subprotocol(), CBOR{}.Subprotocol()}
}
