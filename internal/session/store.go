// Package session holds per-browser authentication state: the current user
// and bearer token, their durable copy, and background token validation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"carrental/internal/model"
)

// DefaultValidateTTL is how long a successful token check is trusted.
const DefaultValidateTTL = 5 * time.Minute

// Validator checks a token against the backend.
type Validator interface {
	ValidateToken(ctx context.Context, token string) error
}

// Rejection is implemented by validator errors that can tell a refused token
// apart from a failed request.
type Rejection interface {
	Rejected() bool
}

// ErrTokenRejected may be returned by a Validator to refuse a token.
var ErrTokenRejected = errors.New("session: token rejected")

// Snapshot is an immutable view of a Store at one instant.
type Snapshot struct {
	User    *model.User
	Token   string
	Loading bool
}

// IsAuthenticated reports whether both user and token are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// IsAdmin reports whether the authenticated user has the ADMIN role.
func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the component logger.
func WithLogger(l echo.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithEvents sets the channel AuthEvents are sent on.
func WithEvents(ch chan<- AuthEvent) Option {
	return func(s *Store) { s.events = ch }
}

// WithValidateTTL sets how long a token check is trusted.
func WithValidateTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.validateTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns one session's identity.
type Store struct {
	id          string
	storage     Storage
	log         echo.Logger
	events      chan<- AuthEvent
	validateTTL time.Duration
	now         func() time.Time

	initOnce sync.Once
	initErr  error

	// writeMu orders storage writes with the state changes they back. It is
	// always taken before mu and never blocks Snapshot.
	writeMu sync.Mutex

	mu          sync.RWMutex
	user        *model.User
	token       string
	loading     bool
	checkedAt   map[string]time.Time
	checking    map[string]bool
	invalidated map[string]bool
	lastSeen    time.Time
}

// NewStore creates a Store in the loading phase.
func NewStore(id string, storage Storage, opts ...Option) *Store {
	s := &Store{
		id:          id,
		storage:     storage,
		validateTTL: DefaultValidateTTL,
		now:         time.Now,
		loading:     true,
		checkedAt:   make(map[string]time.Time),
		checking:    make(map[string]bool),
		invalidated: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.New("session")
	}
	s.lastSeen = s.now()
	return s
}

// ID returns the session identifier.
func (s *Store) ID() string { return s.id }

// Initialize adopts the persisted token and user when both are present and
// readable. It runs once; later calls return the first result.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Store) initialize(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	token, raw, err := s.storage.Load(ctx, s.id)
	if err != nil {
		s.log.Warnf("session %s: load failed, starting signed out: %v", s.id, err)
		return err
	}
	if token == "" && raw == "" {
		return nil
	}

	var user model.User
	if token == "" || raw == "" || json.Unmarshal([]byte(raw), &user) != nil {
		s.log.Warnf("session %s: discarding incomplete persisted session", s.id)
		if err := s.storage.Clear(ctx, s.id); err != nil {
			return err
		}
		return nil
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current state. Callers use one snapshot per request.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token, Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Login persists both fields and then adopts them.
func (s *Store) Login(ctx context.Context, user *model.User, token string) error {
	if user == nil || token == "" {
		return errors.New("session: login needs a user and a token")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.storage.Save(ctx, s.id, token, string(raw)); err != nil {
		return err
	}
	u := *user
	s.mu.Lock()
	s.user = &u
	s.token = token
	s.loading = false
	delete(s.invalidated, token)
	s.mu.Unlock()

	s.emit(AuthEvent{Kind: LoggedIn, TokenID: Fingerprint(token), UserID: user.UserID, Username: user.UserName})
	return nil
}

// Refresh replaces the stored user record when token is still the current
// token. It reports whether the record was replaced.
func (s *Store) Refresh(ctx context.Context, user *model.User, token string) (bool, error) {
	if user == nil {
		return false, errors.New("session: refresh needs a user")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return false, fmt.Errorf("encode user: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if current := s.Snapshot().Token; current == "" || current != token {
		return false, nil
	}
	if err := s.storage.Save(ctx, s.id, token, string(raw)); err != nil {
		return false, err
	}
	u := *user
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return true, nil
}

// Logout clears state and storage. It is idempotent.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	hadToken := s.token
	user := s.user
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	err := s.storage.Clear(ctx, s.id)

	if hadToken != "" {
		ev := AuthEvent{Kind: LoggedOut, TokenID: Fingerprint(hadToken)}
		if user != nil {
			ev.UserID, ev.Username = user.UserID, user.UserName
		}
		s.emit(ev)
	}
	return err
}

// Validate checks the current token in the background. A rejected token logs
// the session out exactly once; request failures keep the session. It never
// returns an error.
func (s *Store) Validate(ctx context.Context, v Validator) {
	s.mu.Lock()
	token := s.token
	now := s.now()
	if token == "" || s.invalidated[token] || s.checking[token] {
		s.mu.Unlock()
		return
	}
	if at, ok := s.checkedAt[token]; ok && now.Sub(at) < s.validateTTL {
		s.mu.Unlock()
		return
	}
	s.checking[token] = true
	s.mu.Unlock()

	rejected := expired(token, now)
	if !rejected && v != nil {
		err := v.ValidateToken(ctx, token)
		switch {
		case err == nil:
		case isRejection(err):
			rejected = true
		default:
			s.log.Warnf("session %s: token check failed, keeping session: %v", s.id, err)
		}
	}

	if !rejected {
		s.mu.Lock()
		delete(s.checking, token)
		s.checkedAt[token] = s.now()
		s.mu.Unlock()
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	delete(s.checking, token)
	s.invalidated[token] = true
	delete(s.checkedAt, token)
	var user *model.User
	cleared := s.token == token
	if cleared {
		user = s.user
		s.user = nil
		s.token = ""
	}
	s.mu.Unlock()

	if !cleared {
		return
	}
	if err := s.storage.Clear(ctx, s.id); err != nil {
		s.log.Errorf("session %s: clear after invalid token: %v", s.id, err)
	}
	s.log.Infof("session %s: token rejected, signed out", s.id)
	ev := AuthEvent{Kind: TokenInvalidated, TokenID: Fingerprint(token)}
	if user != nil {
		ev.UserID, ev.Username = user.UserID, user.UserName
	}
	s.emit(ev)
}

// Touch records activity for idle eviction.
func (s *Store) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// emit never waits for the consumer: a full queue drops the event.
func (s *Store) emit(ev AuthEvent) {
	if s.events == nil {
		return
	}
	ev.SessionID = s.id
	ev.At = s.now()
	select {
	case s.events <- ev:
	default:
		s.log.Warnf("session %s: event queue full, dropped %s event", s.id, ev.Kind)
	}
}

func isRejection(err error) bool {
	if errors.Is(err, ErrTokenRejected) {
		return true
	}
	var r Rejection
	return errors.As(err, &r) && r.Rejected()
}

// expired reports whether token is a JWT whose exp has passed. Opaque or
// undecodable tokens are left to the backend.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
