package credstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hrygo/reviewflow/client"
	clienterrors "github.com/hrygo/reviewflow/internal/errors"
)

// MockStore is an in-memory Store for testing. It keeps the raw serialized
// user so tests can seed corrupt snapshots.
type MockStore struct {
	mu      sync.Mutex
	token   string
	rawUser string

	Writes int
	Clears int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// SeedRaw plants raw slot values, bypassing validation. Tests use it to
// simulate a prior run's snapshot, including corrupt ones.
func (m *MockStore) SeedRaw(token, rawUser string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.rawUser = rawUser
}

// Read behaves like the SQLite store, including the soft failure on corrupt user data.
func (m *MockStore) Read(_ context.Context) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || m.rawUser == "" {
		return nil, nil
	}
	var user client.User
	if err := json.Unmarshal([]byte(m.rawUser), &user); err != nil {
		return nil, clienterrors.MalformedState(err)
	}
	return &Credentials{Token: m.token, User: &user}, nil
}

// Write sets both slots.
func (m *MockStore) Write(_ context.Context, token string, user *client.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.rawUser = string(raw)
	m.Writes++
	return nil
}

// Clear removes both slots.
func (m *MockStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.rawUser = ""
	m.Clears++
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }

// Empty reports whether both slots are absent.
func (m *MockStore) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token == "" && m.rawUser == ""
}
