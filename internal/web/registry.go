package web

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"carrental/internal/cart"
	"carrental/internal/resource"
	"carrental/internal/session"
)

// SessionContext is everything one browser session owns: its identity, its
// read cache and its cart.
type SessionContext struct {
	Store *session.Store
	Cache *resource.Cache
	Cart  *cart.Reconciler

	mu    sync.Mutex
	token string
}

// Snapshot returns the store snapshot and drops cached reads that belonged
// to a different token.
func (sc *SessionContext) Snapshot() session.Snapshot {
	snap := sc.Store.Snapshot()
	sc.mu.Lock()
	if snap.Token != sc.token {
		sc.Cache.Reset()
		sc.token = snap.Token
	}
	sc.mu.Unlock()
	return snap
}

// ID is the session identifier.
func (sc *SessionContext) ID() string { return sc.Store.ID() }

// Registry maps session ids to their contexts.
type Registry struct {
	manager   *session.Manager
	api       cart.API
	cacheOpts resource.Options
	log       echo.Logger

	mu       sync.Mutex
	contexts map[string]*SessionContext
}

// NewRegistry creates a Registry on top of manager.
func NewRegistry(manager *session.Manager, api cart.API, cacheOpts resource.Options, logger echo.Logger) *Registry {
	if logger == nil {
		logger = log.New("web")
	}
	return &Registry{
		manager:   manager,
		api:       api,
		cacheOpts: cacheOpts,
		log:       logger,
		contexts:  make(map[string]*SessionContext),
	}
}

// Open returns the context for sid. A storage failure is logged and the
// session starts signed out.
func (r *Registry) Open(ctx context.Context, sid string) *SessionContext {
	store, err := r.manager.Open(ctx, sid)
	if err != nil {
		r.log.Warnf("open session %s: %v", sid, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.contexts[sid]
	if ok && sc.Store == store {
		return sc
	}
	sc = &SessionContext{Store: store, Cache: resource.New(r.cacheOpts)}
	sc.Cart = cart.New(r.api, sc, sc.Cache, cart.WithLogger(r.log))
	r.contexts[sid] = sc
	return sc
}

// Evict drops idle sessions and their contexts.
func (r *Registry) Evict() int {
	n := r.manager.Evict()
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid := range r.contexts {
		if _, live := r.manager.Lookup(sid); !live {
			delete(r.contexts, sid)
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.log.Debugf("evicted %d idle sessions", n)
			}
		}
	}
}

// Len is the number of live session contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}
