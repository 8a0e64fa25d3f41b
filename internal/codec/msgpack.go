package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wudi/wampd/internal/wampproto"
)

// MsgPack implements Codec over vmihailenco/msgpack/v5, one of
// spec.md §6's expected binary codecs.
type MsgPack struct{}

func (MsgPack) ID() ID             { return IDMsgPack }
func (MsgPack) Subprotocol() string { return "wamp.2.msgpack" }
func (MsgPack) Binary() bool       { return true }

func (MsgPack) Encode(raw wampproto.List) ([]byte, error) {
	return msgpack.Marshal([]any(raw))
}

// Decode relies on msgpack/v5's default interface{} decoding, which
// resolves string-keyed maps to map[string]interface{} and arrays to
// []interface{} — again identical underlying types to wampproto.Dict
// and wampproto.List.
func (MsgPack) Decode(data []byte) (wampproto.List, error) {
	var raw wampproto.List
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
