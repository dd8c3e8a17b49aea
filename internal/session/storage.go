package session

import (
	"context"
	"sync"
)

// Durable keys kept per session. Both are present or both are absent.
const (
	TokenKey = "authToken"
	UserKey  = "authUser"
)

// Storage persists the two durable session fields.
type Storage interface {
	// Load returns the stored token and serialized user. Missing fields are
	// returned as empty strings.
	Load(ctx context.Context, sid string) (token, user string, err error)
	// Save writes both fields or neither.
	Save(ctx context.Context, sid, token, user string) error
	// Clear removes both fields. Clearing an empty session is not an error.
	Clear(ctx context.Context, sid string) error
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Load(_ context.Context, sid string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields := m.data[sid]
	return fields[TokenKey], fields[UserKey], nil
}

func (m *MemoryStorage) Save(_ context.Context, sid, token, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sid] = map[string]string{TokenKey: token, UserKey: user}
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

// Put sets a single raw field. Tests use it to simulate half-written state.
func (m *MemoryStorage) Put(sid, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[sid] == nil {
		m.data[sid] = make(map[string]string)
	}
	m.data[sid][key] = value
}

// Has reports whether key is stored for sid.
func (m *MemoryStorage) Has(sid, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[sid][key]
	return ok
}
