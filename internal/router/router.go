// Package router implements the process-wide Router entity from
// spec.md §4.11: the set of open realms and the set of open servers,
// constructed once and run until Close, which blocks until every
// internal task (server accept loop) has returned.
package router

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wudi/wampd/internal/authorize"
	"github.com/wudi/wampd/internal/realm"
)

var (
	ErrRealmAlreadyExists  = errors.New("router: realm already exists")
	ErrNoSuchRealm         = errors.New("router: no such realm")
	ErrServerAlreadyExists = errors.New("router: server already exists")
	ErrNoSuchServer        = errors.New("router: no such server")
)

// Server is a named, independently startable/stoppable accept loop —
// typically one listening socket plus its codec set and authenticator,
// constructed by cmd/ once a transport/listener is wired up and handed
// to the router purely for lifecycle tracking, the same way
// internal/listener.Manager tracks Listener values it didn't create.
type Server interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RealmOptions configures a realm opened through the router.
type RealmOptions struct {
	URI        string
	Options    realm.Options
	Authorizer authorize.Authorizer
}

// Router owns the process-wide set of realms and open servers.
type Router struct {
	log *zap.Logger

	mu      sync.Mutex
	realms  map[string]*realm.Realm
	servers map[string]Server
	closed  bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New constructs an empty Router. log may be nil, in which case a
// no-op logger is used.
func New(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		log:     log,
		realms:  make(map[string]*realm.Realm),
		servers: make(map[string]Server),
	}
}

// OpenRealm inserts a realm keyed by URI, failing with
// ErrRealmAlreadyExists on duplicate, per spec.md §4.11.
func (r *Router) OpenRealm(opts RealmOptions) (*realm.Realm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrNoSuchRealm
	}
	if _, exists := r.realms[opts.URI]; exists {
		return nil, ErrRealmAlreadyExists
	}
	rm := realm.New(opts.URI, opts.Options, opts.Authorizer)
	r.realms[opts.URI] = rm
	r.log.Info("realm opened", zap.String("uri", opts.URI))
	return rm, nil
}

// CloseRealm initiates shutdown of the realm at uri: its sessions are
// transitioned through shutdown and its broker/dealer state discarded.
func (r *Router) CloseRealm(uri string) error {
	r.mu.Lock()
	rm, ok := r.realms[uri]
	if !ok {
		r.mu.Unlock()
		return ErrNoSuchRealm
	}
	delete(r.realms, uri)
	r.mu.Unlock()

	rm.Close()
	r.log.Info("realm closed", zap.String("uri", uri))
	return nil
}

// Realm performs the realm lookup session admission needs; absence
// should surface to the caller as no_such_realm.
func (r *Router) Realm(uri string) (*realm.Realm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.realms[uri]
	return rm, ok
}

// Realms returns every currently open realm.
func (r *Router) Realms() []*realm.Realm {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*realm.Realm, 0, len(r.realms))
	for _, rm := range r.realms {
		out = append(out, rm)
	}
	return out
}

// OpenServer registers srv under its name and starts its accept loop
// in the background, tracked by the router's internal-task wait group
// so Close blocks until it returns.
func (r *Router) OpenServer(ctx context.Context, srv Server) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNoSuchServer
	}
	if _, exists := r.servers[srv.Name()]; exists {
		r.mu.Unlock()
		return ErrServerAlreadyExists
	}
	r.servers[srv.Name()] = srv
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.Start(ctx); err != nil {
			r.log.Error("server stopped", zap.String("server", srv.Name()), zap.Error(err))
		}
	}()
	r.log.Info("server opened", zap.String("server", srv.Name()))
	return nil
}

// CloseServer initiates graceful shutdown of the named server's
// sessions and deregisters it.
func (r *Router) CloseServer(ctx context.Context, name string) error {
	r.mu.Lock()
	srv, ok := r.servers[name]
	if !ok {
		r.mu.Unlock()
		return ErrNoSuchServer
	}
	delete(r.servers, name)
	r.mu.Unlock()

	err := srv.Stop(ctx)
	r.log.Info("server closed", zap.String("server", name))
	return err
}

// Close shuts down every open server, closes every realm, and blocks
// until all internal tasks have returned, per spec.md §4.11's
// "run until close() is called → all internal tasks complete before
// close() returns." Close is idempotent.
func (r *Router) Close(ctx context.Context) error {
	var firstErr error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		servers := make([]Server, 0, len(r.servers))
		for _, s := range r.servers {
			servers = append(servers, s)
		}
		r.servers = make(map[string]Server)

		realms := make([]*realm.Realm, 0, len(r.realms))
		for _, rm := range r.realms {
			realms = append(realms, rm)
		}
		r.realms = make(map[string]*realm.Realm)
		r.closed = true
		r.mu.Unlock()

		for _, s := range servers {
			if err := s.Stop(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		for _, rm := range realms {
			rm.Close()
		}

		r.wg.Wait()
	})
	return firstErr
}
