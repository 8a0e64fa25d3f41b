package codec

import (
	"encoding/json"

	"github.com/wudi/wampd/internal/wampproto"
)

// JSON implements Codec over encoding/json, the WAMP default and the
// only codec spec.md's ecosystem list that needs a text (not binary)
// transport frame.
type JSON struct{}

func (JSON) ID() ID             { return IDJSON }
func (JSON) Subprotocol() string { return "wamp.2.json" }
func (JSON) Binary() bool       { return false }

func (JSON) Encode(raw wampproto.List) ([]byte, error) {
	return json.Marshal(raw)
}

// Decode relies on encoding/json's generic-interface decoding producing
// map[string]interface{} for objects and []interface{} for arrays —
// identical underlying types to wampproto.Dict and wampproto.List,
// which are aliases rather than named types, so nested elements need
// no further conversion.
func (JSON) Decode(data []byte) (wampproto.List, error) {
	var raw wampproto.List
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
