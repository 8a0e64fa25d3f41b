package wampproto

import (
	"errors"
	"fmt"
)

// fieldKind identifies the expected decoded Go type of one positional
// element in a message's wire array (after the leading kind integer).
type fieldKind int

const (
	fInt fieldKind = iota
	fDict
	fString
	fList
	fAny
)

func (fk fieldKind) check(v any) bool {
	switch fk {
	case fInt:
		_, ok := asUint64(v)
		return ok
	case fDict:
		_, ok := v.(Dict)
		return ok
	case fString:
		_, ok := v.(string)
		return ok
	case fList:
		_, ok := v.(List)
		return ok
	case fAny:
		return true
	default:
		return false
	}
}

// AsUint64 accepts any numeric decoded representation a codec might
// produce (float64 from encoding/json, int64/uint64 from msgpack/cbor)
// and is exported for packages parsing raw option dicts (eligible/
// exclude session-id lists in PUBLISH options, for instance).
func AsUint64(v any) (uint64, bool) { return asUint64(v) }

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// spec describes one message kind's wire shape: required fields (in
// order, right after the kind integer), optional trailing fields, and
// the set of session states in which the router accepts it as inbound.
// A nil ValidStates means the kind is router-to-peer only and is always
// a protocol violation if received.
type spec struct {
	Required    []fieldKind
	Optional    []fieldKind
	ValidStates []State
}

func (s spec) minLen() int { return 1 + len(s.Required) }
func (s spec) maxLen() int { return s.minLen() + len(s.Optional) }

var table = map[Kind]spec{
	KindHello: {
		Required:    []fieldKind{fString, fDict},
		ValidStates: []State{StateEstablishing},
	},
	KindWelcome: {
		Required: []fieldKind{fInt, fDict},
	},
	KindAbort: {
		Required:    []fieldKind{fDict, fString},
		ValidStates: []State{StateEstablishing, StateAuthenticating, StateEstablished},
	},
	KindChallenge: {
		Required: []fieldKind{fString, fDict},
	},
	KindAuthenticate: {
		Required:    []fieldKind{fString, fDict},
		ValidStates: []State{StateAuthenticating},
	},
	KindGoodbye: {
		Required:    []fieldKind{fDict, fString},
		ValidStates: []State{StateEstablished},
	},
	KindError: {
		Required:    []fieldKind{fInt, fInt, fDict, fString},
		Optional:    []fieldKind{fList, fDict},
		ValidStates: []State{StateEstablished},
	},
	KindPublish: {
		Required:    []fieldKind{fInt, fDict, fString},
		Optional:    []fieldKind{fList, fDict},
		ValidStates: []State{StateEstablished},
	},
	KindPublished: {
		Required: []fieldKind{fInt, fInt},
	},
	KindSubscribe: {
		Required:    []fieldKind{fInt, fDict, fString},
		ValidStates: []State{StateEstablished},
	},
	KindSubscribed: {
		Required: []fieldKind{fInt, fInt},
	},
	KindUnsubscribe: {
		Required:    []fieldKind{fInt, fInt},
		ValidStates: []State{StateEstablished},
	},
	KindUnsubscribed: {
		Required: []fieldKind{fInt},
	},
	KindEvent: {
		Required: []fieldKind{fInt, fInt, fDict},
		Optional: []fieldKind{fList, fDict},
	},
	KindCall: {
		Required:    []fieldKind{fInt, fDict, fString},
		Optional:    []fieldKind{fList, fDict},
		ValidStates: []State{StateEstablished},
	},
	KindCancel: {
		Required:    []fieldKind{fInt, fDict},
		ValidStates: []State{StateEstablished},
	},
	KindResult: {
		Required: []fieldKind{fInt, fDict},
		Optional: []fieldKind{fList, fDict},
	},
	KindRegister: {
		Required:    []fieldKind{fInt, fDict, fString},
		ValidStates: []State{StateEstablished},
	},
	KindRegistered: {
		Required: []fieldKind{fInt, fInt},
	},
	KindUnregister: {
		Required:    []fieldKind{fInt, fInt},
		ValidStates: []State{StateEstablished},
	},
	KindUnregistered: {
		Required: []fieldKind{fInt},
	},
	KindInvocation: {
		Required: []fieldKind{fInt, fInt, fDict},
		Optional: []fieldKind{fList, fDict},
	},
	KindInterrupt: {
		Required: []fieldKind{fInt, fDict},
	},
	KindYield: {
		Required:    []fieldKind{fInt, fDict},
		Optional:    []fieldKind{fList, fDict},
		ValidStates: []State{StateEstablished},
	},
}

// ErrUnknownKind is returned for a leading integer that is not one of
// the 24 defined message kinds.
var ErrUnknownKind = errors.New("wampproto: unknown message kind")

// ErrWrongState is returned when a structurally valid message arrives
// in a session state that does not permit it.
var ErrWrongState = errors.New("wampproto: message not valid in current state")

// Validate checks raw (a decoded wire array with the kind integer at
// index 0) against the validation table for the given session state.
// It returns the resolved Kind so callers don't need to re-decode it.
func Validate(raw List, state State) (Kind, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("wampproto: empty message array")
	}
	kindNum, ok := asUint64(raw[0])
	if !ok {
		return 0, fmt.Errorf("wampproto: message kind must be a non-negative integer")
	}
	k := Kind(kindNum)
	s, ok := table[k]
	if !ok {
		return k, ErrUnknownKind
	}
	if len(raw) < s.minLen() || len(raw) > s.maxLen() {
		return k, fmt.Errorf("wampproto: %s expects %d-%d elements, got %d", k, s.minLen(), s.maxLen(), len(raw))
	}
	for i, fk := range s.Required {
		if !fk.check(raw[1+i]) {
			return k, fmt.Errorf("wampproto: %s field %d has wrong type", k, i)
		}
	}
	for i, fk := range s.Optional {
		idx := s.minLen() + i
		if idx >= len(raw) {
			break
		}
		if !fk.check(raw[idx]) {
			return k, fmt.Errorf("wampproto: %s optional field %d has wrong type", k, i)
		}
	}
	if s.ValidStates == nil {
		return k, fmt.Errorf("%w: %s is router-originated and never valid inbound", ErrWrongState, k)
	}
	for _, st := range s.ValidStates {
		if st == state {
			return k, nil
		}
	}
	return k, fmt.Errorf("%w: %s not valid in state %s", ErrWrongState, k, state)
}
