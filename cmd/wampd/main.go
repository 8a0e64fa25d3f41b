// Command wampd runs a WAMP router process: it loads a YAML
// configuration, opens the configured realms and WebSocket servers,
// serves Prometheus metrics and health endpoints on an admin listener,
// and runs until terminated, shutting every server and realm down in
// turn. Grounded on the teacher's cmd/gateway/main.go (flag parsing,
// -validate short-circuit) and internal/gateway.Server.Run (signal
// handling plus a bounded Shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/wampd/internal/admission"
	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/config"
	"github.com/wudi/wampd/internal/dealer"
	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/logging"
	"github.com/wudi/wampd/internal/metaapi"
	"github.com/wudi/wampd/internal/metrics"
	"github.com/wudi/wampd/internal/realm"
	"github.com/wudi/wampd/internal/router"
	"github.com/wudi/wampd/internal/tracing"
	"github.com/wudi/wampd/internal/transport"
	"github.com/wudi/wampd/internal/wsserver"
)

var version = "dev"

func main() {
	var (
		configPath = flag.String("config", "wampd.yaml", "path to the router configuration file")
		showVer    = flag.Bool("version", false, "print version and exit")
		validate   = flag.Bool("validate", false, "load and validate the configuration, then exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("wampd", version)
		return
	}

	cfg, err := config.NewLoader().Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wampd: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("configuration OK")
		return
	}

	log, closer, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wampd: logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(log)
	if closer != nil {
		defer closer.Close()
	}
	defer logging.Sync()

	if err := run(*configPath, cfg, log); err != nil {
		log.Error("wampd exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	rt := router.New(log)

	for _, rc := range cfg.Realms {
		opts, err := realmOptions(rc)
		if err != nil {
			return fmt.Errorf("realm %s: %w", rc.URI, err)
		}
		if _, err := rt.OpenRealm(router.RealmOptions{
			URI:        rc.URI,
			Options:    opts,
			Authorizer: realmAuthorizer(rc),
		}); err != nil {
			return fmt.Errorf("open realm %s: %w", rc.URI, err)
		}
		log.Info("realm configured", zap.String("uri", rc.URI), zap.String("authorizer", rc.Authorizer))
	}
	collector.SetRealmsOpen(len(cfg.Realms))

	tracer, err := tracing.New(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer tracer.Close(context.Background())

	if watcher, err := config.NewWatcher(configPath); err == nil {
		watcher.OnChange(func(*config.Config) {
			log.Warn("configuration file changed on disk; edits to realms and servers require a restart to take effect")
		})
		if err := watcher.Start(); err != nil {
			log.Warn("config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	} else {
		log.Warn("config watcher disabled", zap.Error(err))
	}

	for _, sc := range cfg.Servers {
		wsCfg := wsserver.Config{
			ID:      sc.ID,
			Address: sc.Address,
			Path:    sc.Path,
			Transport: transport.WebSocketConfig{
				ReadLimit:    sc.ReadLimit,
				WriteTimeout: sc.WriteTimeout,
				PingInterval: sc.PingInterval,
			},
			Admission: admission.Config{
				SoftLimit:          cfg.Admission.SoftLimit,
				HardLimit:          cfg.Admission.HardLimit,
				MonitoringInterval: cfg.Admission.MonitoringInterval,
				HelloTimeout:       cfg.Admission.HelloTimeout,
				ChallengeTimeout:   cfg.Admission.ChallengeTimeout,
				StaleTimeout:       cfg.Admission.StaleTimeout,
				OverstayTimeout:    cfg.Admission.OverstayTimeout,
				BackoffMin:         cfg.Admission.BackoffMin,
				BackoffMax:         cfg.Admission.BackoffMax,
			},
			MessageRateLimit: sc.MessageRateLimit,
			MessageBurst:     sc.MessageBurst,
			Router:           rt,
			Metrics:          collector,
			Tracer:           tracer,
			Log:              log,
		}
		if sc.TLS.Enabled {
			wsCfg.TLSCertFile = sc.TLS.CertFile
			wsCfg.TLSKeyFile = sc.TLS.KeyFile
		}
		if err := rt.OpenServer(ctx, wsserver.New(wsCfg)); err != nil {
			return fmt.Errorf("open server %s: %w", sc.ID, err)
		}
	}

	var adminSrv *http.Server
	if cfg.Admin.Enabled {
		adminSrv = startAdmin(cfg.Admin.Address, collector, rt, log)
	}

	log.Info("wampd started", zap.Int("realms", len(cfg.Realms)), zap.Int("servers", len(cfg.Servers)))

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if adminSrv != nil {
		_ = adminSrv.Shutdown(shutdownCtx)
	}
	return rt.Close(shutdownCtx)
}

// startAdmin serves /healthz, /readyz, /metrics, and the read-only
// /meta/{realm}/... introspection surface the way the teacher's
// internal/gateway.Server.adminHandler serves its own health/stats
// surface.
func startAdmin(addr string, collector *metrics.Collector, rt *router.Router, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/meta/", metaapi.NewHTTPHandler(func(realmURI string) (*metaapi.Registry, bool) {
		rm, ok := rt.Realm(realmURI)
		if !ok || rm.Meta == nil {
			return nil, false
		}
		return rm.Meta, true
	}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server stopped", zap.Error(err))
		}
	}()
	log.Info("admin listener started", zap.String("address", addr))
	return srv
}

// realmAuthorizer selects an Authorizer for a realm per its configured
// "authorizer" name. "ruleset" resolves to an empty, deny-by-default
// authorize.Static table: the configuration format carries no
// per-authrole rule list yet, so an embedder wanting real rules
// constructs and passes its own authorize.Authorizer instead of using
// this binary's config loader.
func realmAuthorizer(rc config.RealmConfig) authorize.Authorizer {
	switch rc.Authorizer {
	case "deny_all":
		return authorize.FuncAuthorizer(func(_ context.Context, req authorize.Request) (authorize.Authorization, error) {
			return authorize.Authorization{Allowed: false}, nil
		})
	case "ruleset":
		return authorize.NewStatic()
	default:
		return authorize.Default{}
	}
}

func realmOptions(rc config.RealmConfig) (realm.Options, error) {
	callerPolicy, err := parseDisclosurePolicy(rc.CallerDisclosure)
	if err != nil {
		return realm.Options{}, fmt.Errorf("caller_disclosure: %w", err)
	}
	publisherPolicy, err := parseDisclosurePolicy(rc.PublisherDisclosure)
	if err != nil {
		return realm.Options{}, fmt.Errorf("publisher_disclosure: %w", err)
	}

	forwarding := dealer.ForwardNever
	if rc.TimeoutForwarding {
		forwarding = dealer.ForwardPerRegistration
	}

	precision, err := parseTimestampPrecision(rc.TimestampPrecision)
	if err != nil {
		return realm.Options{}, fmt.Errorf("timestamp_precision: %w", err)
	}

	return realm.Options{
		CallerDisclosure:                 callerPolicy,
		PublisherDisclosure:              publisherPolicy,
		StrictDisclosure:                 rc.StrictDisclosure,
		TimeoutForwarding:                forwarding,
		MetaAPIEnabled:                   rc.MetaAPIEnabled,
		MetaProcedureRegistrationAllowed: rc.MetaProcedureRegistrationAllowed,
		MetaTopicPublicationAllowed:      rc.MetaTopicPublicationAllowed,
		TimestampPrecision:               precision,
	}, nil
}

func parseDisclosurePolicy(s string) (disclosure.Policy, error) {
	switch s {
	case "", "preset":
		return disclosure.PolicyPreset, nil
	case "producer":
		return disclosure.PolicyProducer, nil
	case "consumer":
		return disclosure.PolicyConsumer, nil
	case "either":
		return disclosure.PolicyEither, nil
	case "both":
		return disclosure.PolicyBoth, nil
	case "reveal":
		return disclosure.PolicyReveal, nil
	case "conceal":
		return disclosure.PolicyConceal, nil
	default:
		return disclosure.PolicyPreset, fmt.Errorf("unknown policy %q", s)
	}
}

// parseTimestampPrecision accepts either a subsecond-digit count
// ("0", "3", "6", "9") or one of the common unit names.
func parseTimestampPrecision(s string) (int, error) {
	switch s {
	case "":
		return 0, nil
	case "s":
		return 0, nil
	case "ms":
		return 3, nil
	case "us":
		return 6, nil
	case "ns":
		return 9, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown precision %q", s)
	}
	switch n {
	case 0, 3, 6, 9:
		return n, nil
	}
	return 0, fmt.Errorf("unsupported precision %q", s)
}
