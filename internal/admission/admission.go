// Package admission implements the per-server ConnectionAdmitter:
// soft/hard connection limits with stale-session eviction, per-phase
// handshake timeouts, and accept backoff, per spec.md §4.10.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/wampd/internal/wampproto"
)

// Transport is the connection-admission facet a transport exposes,
// per spec.md §6's "Transport interface (consumed)".
type Transport interface {
	// Admit completes the transport-specific handshake (e.g. a
	// WebSocket subprotocol negotiation) and returns the negotiated
	// codec id, or an error if the handshake failed or the transport
	// already sent a non-WAMP response of its own.
	Admit(ctx context.Context) (codecID int, err error)
	Send(msg wampproto.Message) error
	Abort(reason string, details wampproto.Dict) error
	Shutdown(reason string) error
	Close() error
}

// OutcomeKind categorizes the result of Accept, per spec.md §4.10/§6.
type OutcomeKind int

const (
	OutcomeWAMP OutcomeKind = iota
	OutcomeShedded
	OutcomeRejected
	OutcomeFailed
	OutcomeResponded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeWAMP:
		return "wamp"
	case OutcomeShedded:
		return "shedded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Outcome is the categorized result of an admission attempt.
type Outcome struct {
	Kind    OutcomeKind
	CodecID int
	Reason  string
}

// ErrResponded marks a Transport.Admit failure where the transport
// already wrote a non-WAMP response (e.g. an HTTP error page) and the
// admitter should simply drop the attempt without further action.
var ErrResponded = errors.New("admission: transport already responded")

// Abort reason kinds, per spec.md §6's error-URI list and §4.10's
// monitoring-task description. Aliased onto internal/wampproto's full
// wire URIs so a deadline-triggered ABORT carries the same
// "wamp.error.*" reason a real WAMP client expects, not a bare suffix.
const (
	ReasonReadTimeout     = wampproto.ReasonReadTimeout
	ReasonSilenceTimeout  = wampproto.ReasonSilenceTimeout
	ReasonLoiterTimeout   = wampproto.ReasonLoiterTimeout
	ReasonOverstayTimeout = wampproto.ReasonOverstayTimeout
)

// Config holds the per-server admission policy, per spec.md §4.10.
type Config struct {
	SoftLimit          int
	HardLimit          int
	MonitoringInterval time.Duration
	HelloTimeout       time.Duration
	ChallengeTimeout   time.Duration
	StaleTimeout       time.Duration
	OverstayTimeout    time.Duration
	BackoffMin         time.Duration
	BackoffMax         time.Duration
}

// conn tracks one admitted transport's handshake-phase deadlines and
// liveness, for the monitoring loop to enforce.
type conn struct {
	id        uint64
	transport Transport
	joinedAt  time.Time

	mu              sync.Mutex
	helloReceived   bool
	challengeIssued bool
	authenticated   bool
	lastMessageAt   time.Time
}

// Admitter enforces one server's connection-admission policy: it
// decides whether to accept a new transport, tracks admitted
// connections for the monitoring loop, and exposes the accept backoff
// a listener's accept loop should apply after an accept(2) error.
type Admitter struct {
	cfg    Config
	log    *zap.Logger
	backoff *acceptBackoff

	mu      sync.Mutex
	nextID  uint64
	conns   map[uint64]*conn
}

// New creates an Admitter from cfg. log may be nil, in which case a
// no-op logger is used.
func New(cfg Config, log *zap.Logger) *Admitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admitter{
		cfg:     cfg,
		log:     log,
		backoff: newAcceptBackoff(cfg.BackoffMin, cfg.BackoffMax),
		conns:   make(map[uint64]*conn),
	}
}

// Count returns the number of connections currently tracked.
func (a *Admitter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// Accept applies the soft/hard connection-limit policy to a freshly
// dialed transport and, if admitted, runs its handshake. Per spec.md
// §4.10: count < soft accepts normally; soft <= count < hard accepts
// but schedules background eviction of the oldest stale connection and
// logs a soft-limit warning; count >= hard refuses with Shedded and
// never allocates a connection.
func (a *Admitter) Accept(ctx context.Context, t Transport) (Outcome, *Handle) {
	a.mu.Lock()
	count := len(a.conns)
	if count >= a.cfg.HardLimit && a.cfg.HardLimit > 0 {
		a.mu.Unlock()
		a.log.Warn("connection shedded: hard limit reached", zap.Int("count", count), zap.Int("hard_limit", a.cfg.HardLimit))
		return Outcome{Kind: OutcomeShedded, Reason: "hard_limit"}, nil
	}
	overSoft := a.cfg.SoftLimit > 0 && count >= a.cfg.SoftLimit
	a.mu.Unlock()

	if overSoft {
		a.log.Warn("soft connection limit exceeded; scheduling stale eviction", zap.Int("count", count), zap.Int("soft_limit", a.cfg.SoftLimit))
		go a.evictOldestStale()
	}

	hctx := ctx
	var cancel context.CancelFunc
	if a.cfg.HelloTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, a.cfg.HelloTimeout)
		defer cancel()
	}

	codecID, err := t.Admit(hctx)
	if err != nil {
		if errors.Is(err, ErrResponded) {
			return Outcome{Kind: OutcomeResponded}, nil
		}
		if hctx.Err() != nil {
			return Outcome{Kind: OutcomeFailed, Reason: ReasonReadTimeout}, nil
		}
		return Outcome{Kind: OutcomeRejected, Reason: err.Error()}, nil
	}

	c := a.track(t)
	return Outcome{Kind: OutcomeWAMP, CodecID: codecID}, &Handle{admitter: a, conn: c}
}

func (a *Admitter) track(t Transport) *conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	now := time.Now()
	c := &conn{id: a.nextID, transport: t, joinedAt: now, lastMessageAt: now}
	a.conns[c.id] = c
	return c
}

func (a *Admitter) untrack(id uint64) {
	a.mu.Lock()
	delete(a.conns, id)
	a.mu.Unlock()
}

// evictOldestStale aborts the oldest connection that hasn't completed
// its handshake yet or has gone silent, per spec.md §4.10's soft-limit
// background eviction.
func (a *Admitter) evictOldestStale() {
	a.mu.Lock()
	var oldest *conn
	for _, c := range a.conns {
		c.mu.Lock()
		stale := !c.authenticated || (a.cfg.StaleTimeout > 0 && time.Since(c.lastMessageAt) > a.cfg.StaleTimeout)
		c.mu.Unlock()
		if !stale {
			continue
		}
		if oldest == nil || c.joinedAt.Before(oldest.joinedAt) {
			oldest = c
		}
	}
	a.mu.Unlock()

	if oldest == nil {
		return
	}
	a.abort(oldest, ReasonSilenceTimeout)
}

func (a *Admitter) abort(c *conn, reason string) {
	_ = c.transport.Abort(reason, wampproto.Dict{"message": reason})
	_ = c.transport.Close()
	a.untrack(c.id)
}

// AcceptBackoff returns the wait duration to apply after an accept(2)
// error (binary-exponential with Reset on success), per spec.md
// §4.10.
func (a *Admitter) AcceptBackoff() *acceptBackoff {
	return a.backoff
}
