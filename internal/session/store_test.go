package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/model"
)

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

type rejectErr struct{}

func (rejectErr) Error() string  { return "401 unauthorized" }
func (rejectErr) Rejected() bool { return true }

type fakeValidator struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) error {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func testUser() *model.User {
	return &model.User{UserID: 5, UserName: "jdoe", FirstName: "John", Role: model.RoleUser}
}

func newTestStore(t *testing.T, storage Storage, events chan AuthEvent, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithLogger(quietLogger())}
	if events != nil {
		base = append(base, WithEvents(events))
	}
	s := NewStore("sid-1", storage, append(base, opts...)...)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestStore_InitializeAdoptsPersistedSession(t *testing.T) {
	storage := NewMemoryStorage()
	raw, _ := json.Marshal(testUser())
	require.NoError(t, storage.Save(context.Background(), "sid-1", "tok", string(raw)))

	s := NewStore("sid-1", storage, WithLogger(quietLogger()))
	assert.True(t, s.Snapshot().Loading)
	assert.False(t, s.Snapshot().IsAuthenticated())

	require.NoError(t, s.Initialize(context.Background()))
	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsAuthenticated())
	assert.False(t, snap.IsAdmin())
	assert.Equal(t, "tok", snap.Token)
	assert.Equal(t, "jdoe", snap.User.UserName)
}

func TestStore_InitializeDiscardsHalfSession(t *testing.T) {
	tests := []struct {
		name string
		seed func(*MemoryStorage)
	}{
		{"token only", func(m *MemoryStorage) { m.Put("sid-1", TokenKey, "tok") }},
		{"user only", func(m *MemoryStorage) { m.Put("sid-1", UserKey, `{"userId":1}`) }},
		{"unreadable user", func(m *MemoryStorage) {
			m.Put("sid-1", TokenKey, "tok")
			m.Put("sid-1", UserKey, "{not json")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			tt.seed(storage)

			s := newTestStore(t, storage, nil)
			assert.False(t, s.Snapshot().IsAuthenticated())
			assert.False(t, storage.Has("sid-1", TokenKey))
			assert.False(t, storage.Has("sid-1", UserKey))
		})
	}
}

func TestStore_LoginLogout(t *testing.T) {
	storage := NewMemoryStorage()
	events := make(chan AuthEvent, 8)
	s := newTestStore(t, storage, events)
	ctx := context.Background()

	admin := testUser()
	admin.Role = model.RoleAdmin
	require.NoError(t, s.Login(ctx, admin, "tok"))
	assert.True(t, s.Snapshot().IsAdmin())
	assert.True(t, storage.Has("sid-1", TokenKey))
	assert.True(t, storage.Has("sid-1", UserKey))

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.Snapshot().IsAuthenticated())
	assert.False(t, storage.Has("sid-1", TokenKey))

	require.Len(t, events, 2)
	assert.Equal(t, LoggedIn, (<-events).Kind)
	out := <-events
	assert.Equal(t, LoggedOut, out.Kind)
	assert.Equal(t, "sid-1", out.SessionID)
	assert.Equal(t, Fingerprint("tok"), out.TokenID)

	assert.Error(t, s.Login(ctx, nil, "tok"))
}

func TestStore_RefreshKeepsTokenAndEmitsNothing(t *testing.T) {
	storage := NewMemoryStorage()
	events := make(chan AuthEvent, 8)
	s := newTestStore(t, storage, events)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, testUser(), "tok"))
	<-events

	renamed := testUser()
	renamed.FirstName = "Johnny"
	ok, err := s.Refresh(ctx, renamed, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Johnny", s.Snapshot().User.FirstName)
	assert.Equal(t, "tok", s.Snapshot().Token)
	assert.Empty(t, events)

	ok, err = s.Refresh(ctx, renamed, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ValidateRejectionLogsOutExactlyOnce(t *testing.T) {
	storage := NewMemoryStorage()
	events := make(chan AuthEvent, 8)
	s := newTestStore(t, storage, events)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, testUser(), "tok"))
	<-events

	v := &fakeValidator{err: rejectErr{}, release: make(chan struct{})}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Validate(ctx, v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(v.release)
	wg.Wait()

	s.Validate(ctx, v)

	assert.Equal(t, int32(1), v.calls.Load())
	assert.False(t, s.Snapshot().IsAuthenticated())
	assert.False(t, storage.Has("sid-1", TokenKey))
	assert.False(t, storage.Has("sid-1", UserKey))

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, TokenInvalidated, ev.Kind)
	assert.Equal(t, uint(5), ev.UserID)
}

func TestStore_ValidateSentinelRejection(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	require.NoError(t, s.Login(context.Background(), testUser(), "tok"))

	s.Validate(context.Background(), &fakeValidator{err: ErrTokenRejected})
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestStore_ValidateNetworkErrorKeepsSession(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := newTestStore(t, NewMemoryStorage(), nil, WithClock(clock), WithValidateTTL(time.Minute))
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, testUser(), "tok"))

	v := &fakeValidator{err: errors.New("connection refused")}
	s.Validate(ctx, v)
	s.Validate(ctx, v)
	assert.True(t, s.Snapshot().IsAuthenticated())
	assert.Equal(t, int32(1), v.calls.Load())

	now = now.Add(2 * time.Minute)
	s.Validate(ctx, v)
	assert.Equal(t, int32(2), v.calls.Load())
	assert.True(t, s.Snapshot().IsAuthenticated())
}

func TestStore_ValidateSuccessIsCached(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, testUser(), "tok"))

	v := &fakeValidator{}
	s.Validate(ctx, v)
	s.Validate(ctx, v)
	assert.Equal(t, int32(1), v.calls.Load())
	assert.True(t, s.Snapshot().IsAuthenticated())
}

func TestStore_ValidateNeverClearsNewerLogin(t *testing.T) {
	storage := NewMemoryStorage()
	events := make(chan AuthEvent, 8)
	s := newTestStore(t, storage, events)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, testUser(), "old"))

	v := &fakeValidator{err: rejectErr{}, release: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		s.Validate(ctx, v)
		close(done)
	}()

	require.Eventually(t, func() bool { return v.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Login(ctx, testUser(), "new"))
	close(v.release)
	<-done

	snap := s.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "new", snap.Token)
	assert.True(t, storage.Has("sid-1", TokenKey))

	for len(events) > 0 {
		assert.NotEqual(t, TokenInvalidated, (<-events).Kind)
	}
}

func TestStore_ExpiredJWTRejectedLocally(t *testing.T) {
	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	s := newTestStore(t, NewMemoryStorage(), nil)
	require.NoError(t, s.Login(context.Background(), testUser(), expiredToken))

	v := &fakeValidator{}
	s.Validate(context.Background(), v)
	assert.Equal(t, int32(0), v.calls.Load())
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestStore_ValidateWithoutTokenIsNoop(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(), nil)
	v := &fakeValidator{}
	s.Validate(context.Background(), v)
	assert.Equal(t, int32(0), v.calls.Load())
}

type stallingStorage struct {
	*MemoryStorage
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStorage) Save(ctx context.Context, sid, token, user string) error {
	s.entered <- struct{}{}
	<-s.release
	return s.MemoryStorage.Save(ctx, sid, token, user)
}

func TestStore_SnapshotDuringSlowSave(t *testing.T) {
	storage := &stallingStorage{
		MemoryStorage: NewMemoryStorage(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	s := newTestStore(t, storage, nil)

	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), testUser(), "tok") }()
	<-storage.entered

	snapped := make(chan Snapshot, 1)
	go func() { snapped <- s.Snapshot() }()
	select {
	case snap := <-snapped:
		assert.False(t, snap.IsAuthenticated())
	case <-time.After(time.Second):
		t.Fatal("Snapshot waited for the storage write")
	}

	close(storage.release)
	require.NoError(t, <-done)
	assert.True(t, s.Snapshot().IsAuthenticated())
}

func TestStore_FullEventQueueDropsEvents(t *testing.T) {
	events := make(chan AuthEvent, 1)
	s := newTestStore(t, NewMemoryStorage(), events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			assert.NoError(t, s.Login(context.Background(), testUser(), "tok"))
			assert.NoError(t, s.Logout(context.Background()))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Login/Logout blocked on an undrained event queue")
	}
	require.Len(t, events, 1)
	assert.Equal(t, LoggedIn, (<-events).Kind)
	assert.False(t, s.Snapshot().IsAuthenticated())
}
