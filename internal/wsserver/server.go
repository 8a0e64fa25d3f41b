// Package wsserver implements a router.Server: one WebSocket listener
// that admits connections through internal/admission, negotiates a
// codec, runs the HELLO/CHALLENGE/AUTHENTICATE handshake through
// internal/authexchange, joins the resulting session into the realm
// the HELLO named, and dispatches its subsequent WAMP traffic to that
// realm's broker and dealer. Grounded on the teacher's
// internal/listener.HTTPListener (net.Listen + tls.NewListener +
// http.Server.Serve/Shutdown lifecycle).
package wsserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wudi/wampd/internal/admission"
	"github.com/wudi/wampd/internal/authexchange"
	"github.com/wudi/wampd/internal/logging"
	"github.com/wudi/wampd/internal/metrics"
	"github.com/wudi/wampd/internal/router"
	"github.com/wudi/wampd/internal/tracing"
	"github.com/wudi/wampd/internal/transport"
)

// AuthenticatorFor resolves which authexchange.Authenticator a HELLO
// for the given realm should run through. A nil return falls back to
// authexchange.Anonymous.
type AuthenticatorFor func(realm string) authexchange.Authenticator

// Config configures one WebSocket server.
type Config struct {
	ID          string
	Address     string
	Path        string
	TLSCertFile string
	TLSKeyFile  string

	Transport transport.WebSocketConfig
	Admission admission.Config

	// MessageRateLimit bounds sustained WAMP messages per second on one
	// session; MessageBurst bounds the token-bucket burst size. Zero
	// disables per-session rate limiting.
	MessageRateLimit float64
	MessageBurst     int

	Router       *router.Router
	Authenticate AuthenticatorFor
	Metrics      *metrics.Collector
	Tracer       *tracing.Tracer
	Log          *zap.Logger
}

// Server is a router.Server wrapping one net/http listener dedicated to
// WebSocket WAMP connections.
type Server struct {
	cfg      Config
	log      *zap.Logger
	admitter *admission.Admitter
	httpSrv  *http.Server

	sessionID     uint64
	monitorCancel context.CancelFunc
}

// New constructs a Server. It does not start listening until Start is
// called (so it can be registered with a router.Router first).
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = &tracing.Tracer{}
	}
	s := &Server{cfg: cfg, log: log, admitter: admission.New(cfg.Admission, log)}

	path := cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.httpSrv = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return s
}

// Name implements router.Server.
func (s *Server) Name() string { return s.cfg.ID }

// Start implements router.Server: it binds the listener (wrapping it in
// TLS if configured), starts the admission monitoring loop, and serves
// in the background, returning once the listener is confirmed live.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("wsserver %s: listen on %s: %w", s.cfg.ID, s.cfg.Address, err)
	}

	if s.cfg.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("wsserver %s: load TLS cert: %w", s.cfg.ID, err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	s.monitorCancel = cancel
	go s.admitter.Monitor(monitorCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		s.log.Info("wsserver listening", zap.String("server", s.cfg.ID), zap.String("address", s.cfg.Address))
		return nil
	}
}

// Stop implements router.Server.
func (s *Server) Stop(ctx context.Context) error {
	if s.monitorCancel != nil {
		s.monitorCancel()
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) nextSessionID() uint64 {
	s.sessionID++
	return s.sessionID
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws := transport.NewWebSocket(w, r, s.cfg.Transport)
	outcome, handle := s.admitter.Accept(r.Context(), ws)

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordConnectionAdmission(outcome.Kind.String())
	}

	switch outcome.Kind {
	case admission.OutcomeResponded:
		return
	case admission.OutcomeShedded, admission.OutcomeRejected, admission.OutcomeFailed:
		logging.Debug("connection not admitted",
			zap.String("server", s.cfg.ID),
			zap.String("kind", outcome.Kind.String()),
			zap.String("reason", outcome.Reason))
		return
	}

	c := &conn{
		srv:    s,
		ws:     ws,
		handle: handle,
	}
	if s.cfg.MessageRateLimit > 0 {
		burst := s.cfg.MessageBurst
		if burst <= 0 {
			burst = int(s.cfg.MessageRateLimit)
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.MessageRateLimit), burst)
	}
	c.serve(r.Context())
}
