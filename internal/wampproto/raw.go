package wampproto

import "fmt"

// ToRaw renders msg as the wire array a codec serializes: the leading
// kind integer followed by msg's fields in WAMP's positional order,
// trailing empty Args/Kwargs pairs omitted exactly as the reference
// implementation elides them.
func ToRaw(msg Message) List {
	switch m := msg.(type) {
	case Hello:
		return List{int(KindHello), m.Realm, dictOrEmpty(m.Details)}
	case Welcome:
		return List{int(KindWelcome), m.Session, dictOrEmpty(m.Details)}
	case Abort:
		return List{int(KindAbort), dictOrEmpty(m.Details), m.Reason}
	case Challenge:
		return List{int(KindChallenge), m.AuthMethod, dictOrEmpty(m.Extra)}
	case Authenticate:
		return List{int(KindAuthenticate), m.Signature, dictOrEmpty(m.Extra)}
	case Goodbye:
		return List{int(KindGoodbye), dictOrEmpty(m.Details), m.Reason}
	case Error:
		raw := List{int(KindError), int(m.RequestKind), m.Request, dictOrEmpty(m.Details), m.URI}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Publish:
		raw := List{int(KindPublish), m.Request, dictOrEmpty(m.Options), m.Topic}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Published:
		return List{int(KindPublished), m.Request, m.Publication}
	case Subscribe:
		return List{int(KindSubscribe), m.Request, dictOrEmpty(m.Options), m.Topic}
	case Subscribed:
		return List{int(KindSubscribed), m.Request, m.Subscription}
	case Unsubscribe:
		return List{int(KindUnsubscribe), m.Request, m.Subscription}
	case Unsubscribed:
		return List{int(KindUnsubscribed), m.Request}
	case Event:
		raw := List{int(KindEvent), m.Subscription, m.Publication, dictOrEmpty(m.Details)}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Call:
		raw := List{int(KindCall), m.Request, dictOrEmpty(m.Options), m.Procedure}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Cancel:
		return List{int(KindCancel), m.Request, dictOrEmpty(m.Options)}
	case Result:
		raw := List{int(KindResult), m.Request, dictOrEmpty(m.Details)}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Register:
		return List{int(KindRegister), m.Request, dictOrEmpty(m.Options), m.Procedure}
	case Registered:
		return List{int(KindRegistered), m.Request, m.Registration}
	case Unregister:
		return List{int(KindUnregister), m.Request, m.Registration}
	case Unregistered:
		return List{int(KindUnregistered), m.Request}
	case Invocation:
		raw := List{int(KindInvocation), m.Request, m.Registration, dictOrEmpty(m.Details)}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	case Interrupt:
		return List{int(KindInterrupt), m.Request, dictOrEmpty(m.Options)}
	case Yield:
		raw := List{int(KindYield), m.Request, dictOrEmpty(m.Options)}
		return appendArgsKwargs(raw, m.Args, m.Kwargs)
	default:
		panic(fmt.Sprintf("wampproto: ToRaw: unhandled message type %T", msg))
	}
}

func dictOrEmpty(d Dict) Dict {
	if d == nil {
		return Dict{}
	}
	return d
}

// appendArgsKwargs elides a trailing empty Kwargs, and further elides
// Args too when both are empty, matching how WAMP peers commonly omit
// unused trailing positional elements.
func appendArgsKwargs(raw List, args List, kwargs Dict) List {
	if len(kwargs) == 0 {
		if len(args) == 0 {
			return raw
		}
		return append(raw, args)
	}
	if args == nil {
		args = List{}
	}
	return append(raw, args, kwargs)
}

// FromRaw decodes a validated wire array into its typed Message. raw
// must already have passed Validate (or be router-internal and
// therefore trusted), so positional field types are asserted directly
// rather than re-checked.
func FromRaw(raw List) (Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("wampproto: FromRaw: empty array")
	}
	kindNum, ok := asUint64(raw[0])
	if !ok {
		return nil, fmt.Errorf("wampproto: FromRaw: bad kind field")
	}
	k := Kind(kindNum)

	switch k {
	case KindHello:
		return Hello{Realm: str(raw, 1), Details: dict(raw, 2)}, nil
	case KindWelcome:
		return Welcome{Session: u64(raw, 1), Details: dict(raw, 2)}, nil
	case KindAbort:
		return Abort{Details: dict(raw, 1), Reason: str(raw, 2)}, nil
	case KindChallenge:
		return Challenge{AuthMethod: str(raw, 1), Extra: dict(raw, 2)}, nil
	case KindAuthenticate:
		return Authenticate{Signature: str(raw, 1), Extra: dict(raw, 2)}, nil
	case KindGoodbye:
		return Goodbye{Details: dict(raw, 1), Reason: str(raw, 2)}, nil
	case KindError:
		args, kwargs := argsKwargs(raw, 5)
		return Error{RequestKind: Kind(u64(raw, 1)), Request: u64(raw, 2), Details: dict(raw, 3), URI: str(raw, 4), Args: args, Kwargs: kwargs}, nil
	case KindPublish:
		args, kwargs := argsKwargs(raw, 4)
		return Publish{Request: u64(raw, 1), Options: dict(raw, 2), Topic: str(raw, 3), Args: args, Kwargs: kwargs}, nil
	case KindPublished:
		return Published{Request: u64(raw, 1), Publication: u64(raw, 2)}, nil
	case KindSubscribe:
		return Subscribe{Request: u64(raw, 1), Options: dict(raw, 2), Topic: str(raw, 3)}, nil
	case KindSubscribed:
		return Subscribed{Request: u64(raw, 1), Subscription: u64(raw, 2)}, nil
	case KindUnsubscribe:
		return Unsubscribe{Request: u64(raw, 1), Subscription: u64(raw, 2)}, nil
	case KindUnsubscribed:
		return Unsubscribed{Request: u64(raw, 1)}, nil
	case KindEvent:
		args, kwargs := argsKwargs(raw, 4)
		return Event{Subscription: u64(raw, 1), Publication: u64(raw, 2), Details: dict(raw, 3), Args: args, Kwargs: kwargs}, nil
	case KindCall:
		args, kwargs := argsKwargs(raw, 4)
		return Call{Request: u64(raw, 1), Options: dict(raw, 2), Procedure: str(raw, 3), Args: args, Kwargs: kwargs}, nil
	case KindCancel:
		return Cancel{Request: u64(raw, 1), Options: dict(raw, 2)}, nil
	case KindResult:
		args, kwargs := argsKwargs(raw, 3)
		return Result{Request: u64(raw, 1), Details: dict(raw, 2), Args: args, Kwargs: kwargs}, nil
	case KindRegister:
		return Register{Request: u64(raw, 1), Options: dict(raw, 2), Procedure: str(raw, 3)}, nil
	case KindRegistered:
		return Registered{Request: u64(raw, 1), Registration: u64(raw, 2)}, nil
	case KindUnregister:
		return Unregister{Request: u64(raw, 1), Registration: u64(raw, 2)}, nil
	case KindUnregistered:
		return Unregistered{Request: u64(raw, 1)}, nil
	case KindInvocation:
		args, kwargs := argsKwargs(raw, 4)
		return Invocation{Request: u64(raw, 1), Registration: u64(raw, 2), Details: dict(raw, 3), Args: args, Kwargs: kwargs}, nil
	case KindInterrupt:
		return Interrupt{Request: u64(raw, 1), Options: dict(raw, 2)}, nil
	case KindYield:
		args, kwargs := argsKwargs(raw, 3)
		return Yield{Request: u64(raw, 1), Options: dict(raw, 2), Args: args, Kwargs: kwargs}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, k)
	}
}

func str(raw List, i int) string {
	if i >= len(raw) {
		return ""
	}
	s, _ := raw[i].(string)
	return s
}

func u64(raw List, i int) uint64 {
	if i >= len(raw) {
		return 0
	}
	n, _ := asUint64(raw[i])
	return n
}

func dict(raw List, i int) Dict {
	if i >= len(raw) {
		return Dict{}
	}
	d, ok := raw[i].(Dict)
	if !ok {
		return Dict{}
	}
	return d
}

// argsKwargs reads the optional trailing (args, kwargs) pair starting
// at index from, tolerating either being absent.
func argsKwargs(raw List, from int) (List, Dict) {
	var args List
	var kwargs Dict
	if from < len(raw) {
		if l, ok := raw[from].(List); ok {
			args = l
		}
	}
	if from+1 < len(raw) {
		if d, ok := raw[from+1].(Dict); ok {
			kwargs = d
		}
	}
	return args, kwargs
}
