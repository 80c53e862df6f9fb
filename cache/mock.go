package cache

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory QueryCache for testing that records calls.
type MockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	Resets  int
	SetKeys []string
}

// NewMockCache creates a new mock cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

// Get retrieves a value from the mock cache.
func (m *MockCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok
}

// Set stores a value in the mock cache.
func (m *MockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.SetKeys = append(m.SetKeys, key)
	return nil
}

// Invalidate removes the exact key (wildcards are not needed in tests).
func (m *MockCache) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, pattern)
	return nil
}

// Reset drops everything and counts the reset.
func (m *MockCache) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.Resets++
	return nil
}

// Size returns the number of entries.
func (m *MockCache) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
