package session

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	defaultIdleTTL         = 30 * time.Minute
	defaultValidateTimeout = 10 * time.Second
	eventBuffer            = 64
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	IdleTTL         time.Duration
	ValidateTTL     time.Duration
	ValidateTimeout time.Duration
	Logger          echo.Logger
	Now             func() time.Time
}

// Manager is the registry of live session stores. Stores are created on
// first use and dropped after IdleTTL; their durable copy stays in Storage.
type Manager struct {
	storage   Storage
	validator Validator
	cfg       ManagerConfig
	log       echo.Logger
	events    chan AuthEvent

	mu     sync.Mutex
	stores map[string]*Store
	wg     sync.WaitGroup
	closed bool
}

// NewManager creates a Manager. validator may be nil to disable background
// token checks.
func NewManager(storage Storage, validator Validator, cfg ManagerConfig) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.ValidateTTL <= 0 {
		cfg.ValidateTTL = DefaultValidateTTL
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = defaultValidateTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New("session")
	}
	return &Manager{
		storage:   storage,
		validator: validator,
		cfg:       cfg,
		log:       logger,
		events:    make(chan AuthEvent, eventBuffer),
		stores:    make(map[string]*Store),
	}
}

// Events is the single stream of AuthEvents from every store.
func (m *Manager) Events() <-chan AuthEvent {
	return m.events
}

// Open returns the initialized store for sid, creating it when needed, and
// schedules a background token check.
func (m *Manager) Open(ctx context.Context, sid string) (*Store, error) {
	m.mu.Lock()
	store, ok := m.stores[sid]
	if !ok {
		store = NewStore(sid, m.storage,
			WithLogger(m.log),
			WithEvents(m.events),
			WithValidateTTL(m.cfg.ValidateTTL),
			WithClock(m.cfg.Now),
		)
		m.stores[sid] = store
	}
	m.mu.Unlock()

	store.Touch()
	err := store.Initialize(ctx)
	m.scheduleValidation(store)
	return store, err
}

// Lookup returns a live store without creating one.
func (m *Manager) Lookup(sid string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[sid]
	return store, ok
}

func (m *Manager) scheduleValidation(store *Store) {
	if m.validator == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ValidateTimeout)
		defer cancel()
		store.Validate(ctx, m.validator)
	}()
}

// Evict drops stores idle for longer than IdleTTL and returns how many were
// removed.
func (m *Manager) Evict() int {
	cutoff := m.cfg.Now().Add(-m.cfg.IdleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sid, store := range m.stores {
		if store.idleSince().Before(cutoff) {
			delete(m.stores, sid)
			n++
		}
	}
	return n
}

// Wait blocks until scheduled token checks have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops scheduling checks and waits for running ones. Events stays
// open; its consumer stops on its own context.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}
