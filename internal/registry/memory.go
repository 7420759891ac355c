package registry

import (
	"context"
	"sync"
)

// Memory is an in-process Registry shared by several gateway cores inside
// one test binary. It mirrors the Redis client's semantics: single-writer
// atomic updates, overwrite on re-register.
type Memory struct {
	mu     sync.RWMutex
	owners map[string]string
	names  map[string]string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		owners: make(map[string]string),
		names:  make(map[string]string),
	}
}

func (m *Memory) Register(_ context.Context, userID, instanceID, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[userID] = instanceID
	m.names[userID] = displayName
	return nil
}

func (m *Memory) Resolve(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[userID], nil
}

func (m *Memory) DisplayName(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[userID], nil
}

func (m *Memory) Deregister(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, userID)
	delete(m.names, userID)
	return nil
}
