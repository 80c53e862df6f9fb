package session

import (
	"context"
	"sync"

	"github.com/hrygo/reviewflow/client"
	"github.com/hrygo/reviewflow/internal/errors"
)

// MockAuthClient is a programmable AuthClient for testing.
type MockAuthClient struct {
	mu sync.Mutex

	// Users maps email -> password/name/record for login and register.
	Users map[string]MockAccount

	// Gate, when non-nil, blocks every call until the channel is closed,
	// letting tests hold an operation in flight.
	Gate chan struct{}

	// Fail, when set, makes every call return this error.
	Fail error

	LoginCalls    int
	RegisterCalls int
}

// MockAccount is a canned account in the mock auth backend.
type MockAccount struct {
	Password string
	User     client.User
}

// NewMockAuthClient creates an empty mock auth client.
func NewMockAuthClient() *MockAuthClient {
	return &MockAuthClient{Users: make(map[string]MockAccount)}
}

// Login validates against the canned accounts.
func (m *MockAuthClient) Login(ctx context.Context, email, password string) (*client.AuthResponse, error) {
	m.mu.Lock()
	m.LoginCalls++
	gate := m.Gate
	fail := m.Fail
	account, ok := m.Users[email]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, errors.Transport("service unreachable", ctx.Err())
		}
	}
	if fail != nil {
		return nil, fail
	}
	if !ok || account.Password != password {
		return nil, errors.InvalidCredentials()
	}
	user := account.User
	return &client.AuthResponse{Token: "tok-" + user.ID, User: &user}, nil
}

// Register creates an account unless the email is taken.
func (m *MockAuthClient) Register(ctx context.Context, email, password, name string) (*client.AuthResponse, error) {
	m.mu.Lock()
	m.RegisterCalls++
	gate := m.Gate
	fail := m.Fail
	_, exists := m.Users[email]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, errors.Transport("service unreachable", ctx.Err())
		}
	}
	if fail != nil {
		return nil, fail
	}
	if exists {
		return nil, errors.EmailConflict()
	}

	user := client.User{ID: "u-" + email, Email: email, Name: name, Role: client.RoleCustomer}
	m.mu.Lock()
	m.Users[email] = MockAccount{Password: password, User: user}
	m.mu.Unlock()

	return &client.AuthResponse{Token: "tok-" + user.ID, User: &user}, nil
}
