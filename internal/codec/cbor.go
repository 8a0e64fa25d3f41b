package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/wudi/wampd/internal/wampproto"
)

// CBOR implements Codec over fxamacker/cbor/v2, the other binary
// codec spec.md §6 names.
type CBOR struct{}

func (CBOR) ID() ID             { return IDCBOR }
func (CBOR) Subprotocol() string { return "wamp.2.cbor" }
func (CBOR) Binary() bool       { return true }

// decMode decodes CBOR maps into map[string]interface{} rather than
// the library's default map[interface{}]interface{}, so a decoded
// message's Details/Options/Kwargs fields assert cleanly to
// wampproto.Dict.
var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

func (CBOR) Encode(raw wampproto.List) ([]byte, error) {
	return cbor.Marshal([]any(raw))
}

func (CBOR) Decode(data []byte) (wampproto.List, error) {
	var raw wampproto.List
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
