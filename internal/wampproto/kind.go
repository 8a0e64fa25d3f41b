// Package wampproto defines the WAMP message kinds, their wire-array
// shapes, and the validation table the session applies to every inbound
// message before it is handed to the broker or dealer. It deliberately
// stops at the decoded-generic-array boundary: turning bytes on the wire
// into `[]any` is a codec concern (codec/json, codec/msgpack, codec/cbor),
// not this package's.
package wampproto

// Kind identifies a WAMP message type by its wire-protocol integer code.
type Kind int

const (
	KindHello        Kind = 1
	KindWelcome      Kind = 2
	KindAbort        Kind = 3
	KindChallenge    Kind = 4
	KindAuthenticate Kind = 5
	KindGoodbye      Kind = 6
	KindError        Kind = 8
	KindPublish      Kind = 16
	KindPublished    Kind = 17
	KindSubscribe    Kind = 32
	KindSubscribed   Kind = 33
	KindUnsubscribe  Kind = 34
	KindUnsubscribed Kind = 35
	KindEvent        Kind = 36
	KindCall         Kind = 48
	KindCancel       Kind = 49
	KindResult       Kind = 50
	KindRegister     Kind = 64
	KindRegistered   Kind = 65
	KindUnregister   Kind = 66
	KindUnregistered Kind = 67
	KindInvocation   Kind = 68
	KindInterrupt    Kind = 69
	KindYield        Kind = 70
)

var kindNames = map[Kind]string{
	KindHello:        "HELLO",
	KindWelcome:      "WELCOME",
	KindAbort:        "ABORT",
	KindChallenge:    "CHALLENGE",
	KindAuthenticate: "AUTHENTICATE",
	KindGoodbye:      "GOODBYE",
	KindError:        "ERROR",
	KindPublish:      "PUBLISH",
	KindPublished:    "PUBLISHED",
	KindSubscribe:    "SUBSCRIBE",
	KindSubscribed:   "SUBSCRIBED",
	KindUnsubscribe:  "UNSUBSCRIBE",
	KindUnsubscribed: "UNSUBSCRIBED",
	KindEvent:        "EVENT",
	KindCall:         "CALL",
	KindCancel:       "CANCEL",
	KindResult:       "RESULT",
	KindRegister:     "REGISTER",
	KindRegistered:   "REGISTERED",
	KindUnregister:   "UNREGISTER",
	KindUnregistered: "UNREGISTERED",
	KindInvocation:   "INVOCATION",
	KindInterrupt:    "INTERRUPT",
	KindYield:        "YIELD",
}

// String returns the WAMP message name, or "UNKNOWN" for an
// unrecognized kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Known reports whether k is one of the 24 defined WAMP message kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}
