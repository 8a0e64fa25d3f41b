package wampproto

// Well-known WAMP reason/error URIs used across session, broker, dealer,
// realm, and admission control. Collected here so every package that
// needs to abort a session or reply with an ERROR references the same
// string constants instead of re-deriving them. Per spec.md §6, these
// are the full wire URIs, not bare suffixes: GOODBYE-style session-end
// reasons live under wamp.close.*, everything else a router sends as
// an ABORT reason or ERROR URI lives under wamp.error.*, matching
// ErrorInvalidArgument's and the meta-API's existing full-URI form.
const (
	ReasonProtocolViolation = "wamp.error.protocol_violation"
	ReasonSessionKilled     = "wamp.error.session_killed"
	ReasonGoodbyeAndOut     = "wamp.close.goodbye_and_out"
	ReasonCloseRealm        = "wamp.close.close_realm"
	ReasonShedded           = "wamp.error.shedded"
	ReasonInternalError     = "wamp.error.internal_error"

	ReasonReadTimeout     = "wamp.error.read_timeout"
	ReasonSilenceTimeout  = "wamp.error.silence_timeout"
	ReasonLoiterTimeout   = "wamp.error.loiter_timeout"
	ReasonOverstayTimeout = "wamp.error.overstay_timeout"

	ErrorNoSuchRealm        = "wamp.error.no_such_realm"
	ErrorNoSuchProcedure    = "wamp.error.no_such_procedure"
	ErrorNoSuchSubscription = "wamp.error.no_such_subscription"
	ErrorNoSuchRegistration = "wamp.error.no_such_registration"
	ErrorNoSuchSession      = "wamp.error.no_such_session"
	ErrorAlreadyExists      = "wamp.error.procedure_already_exists"
	ErrorCanceled           = "wamp.error.canceled"
	ErrorTimeout            = "wamp.error.timeout"
	ErrorInvalidURI         = "wamp.error.invalid_uri"
	ErrorInvalidArgument    = "wamp.error.invalid_argument"
	ErrorResourceExhausted  = "wamp.error.resource_exhausted"
)
