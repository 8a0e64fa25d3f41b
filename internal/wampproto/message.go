package wampproto

// Dict and List are the generic WAMP value shapes that survive codec
// decoding: options/details/arguments-kw dictionaries and positional
// argument lists.
type Dict = map[string]any
type List = []any

// Message is the tagged-sum interface every concrete WAMP message
// implements. Session code switches on Kind() rather than scattering
// type assertions.
type Message interface {
	Kind() Kind
}

type Hello struct {
	Realm   string
	Details Dict
}

func (Hello) Kind() Kind { return KindHello }

type Welcome struct {
	Session uint64
	Details Dict
}

func (Welcome) Kind() Kind { return KindWelcome }

type Abort struct {
	Details Dict
	Reason  string
}

func (Abort) Kind() Kind { return KindAbort }

type Challenge struct {
	AuthMethod string
	Extra      Dict
}

func (Challenge) Kind() Kind { return KindChallenge }

type Authenticate struct {
	Signature string
	Extra     Dict
}

func (Authenticate) Kind() Kind { return KindAuthenticate }

type Goodbye struct {
	Details Dict
	Reason  string
}

func (Goodbye) Kind() Kind { return KindGoodbye }

// Error carries the RequestKind of the request it replies to, since WAMP
// encodes that as the second array element (e.g. [8, 48, CALL.Request, ...]).
type Error struct {
	RequestKind Kind
	Request     uint64
	Details     Dict
	URI         string
	Args        List
	Kwargs      Dict
}

func (Error) Kind() Kind { return KindError }

type Publish struct {
	Request uint64
	Options Dict
	Topic   string
	Args    List
	Kwargs  Dict
}

func (Publish) Kind() Kind { return KindPublish }

type Published struct {
	Request     uint64
	Publication uint64
}

func (Published) Kind() Kind { return KindPublished }

type Subscribe struct {
	Request uint64
	Options Dict
	Topic   string
}

func (Subscribe) Kind() Kind { return KindSubscribe }

type Subscribed struct {
	Request      uint64
	Subscription uint64
}

func (Subscribed) Kind() Kind { return KindSubscribed }

type Unsubscribe struct {
	Request      uint64
	Subscription uint64
}

func (Unsubscribe) Kind() Kind { return KindUnsubscribe }

type Unsubscribed struct {
	Request uint64
}

func (Unsubscribed) Kind() Kind { return KindUnsubscribed }

type Event struct {
	Subscription uint64
	Publication  uint64
	Details      Dict
	Args         List
	Kwargs       Dict
}

func (Event) Kind() Kind { return KindEvent }

type Call struct {
	Request   uint64
	Options   Dict
	Procedure string
	Args      List
	Kwargs    Dict
}

func (Call) Kind() Kind { return KindCall }

type Cancel struct {
	Request uint64
	Options Dict
}

func (Cancel) Kind() Kind { return KindCancel }

type Result struct {
	Request uint64
	Details Dict
	Args    List
	Kwargs  Dict
}

func (Result) Kind() Kind { return KindResult }

type Register struct {
	Request   uint64
	Options   Dict
	Procedure string
}

func (Register) Kind() Kind { return KindRegister }

type Registered struct {
	Request      uint64
	Registration uint64
}

func (Registered) Kind() Kind { return KindRegistered }

type Unregister struct {
	Request      uint64
	Registration uint64
}

func (Unregister) Kind() Kind { return KindUnregister }

type Unregistered struct {
	Request uint64
}

func (Unregistered) Kind() Kind { return KindUnregistered }

type Invocation struct {
	Request      uint64
	Registration uint64
	Details      Dict
	Args         List
	Kwargs       Dict
}

func (Invocation) Kind() Kind { return KindInvocation }

type Interrupt struct {
	Request uint64
	Options Dict
}

func (Interrupt) Kind() Kind { return KindInterrupt }

type Yield struct {
	Request uint64
	Options Dict
	Args    List
	Kwargs  Dict
}

func (Yield) Kind() Kind { return KindYield }
