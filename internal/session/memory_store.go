package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development without Redis.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]string
	data   map[int64]map[string]any
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int64]string),
		data:   make(map[int64]map[string]any),
	}
}

// SetState overwrites the state token for the user.
func (m *MemoryStore) SetState(_ context.Context, userID int64, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[userID] = state
	return nil
}

// GetState returns the stored state token or ErrStateNotFound.
func (m *MemoryStore) GetState(_ context.Context, userID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[userID]
	if !ok {
		return "", ErrStateNotFound
	}

	return state, nil
}

// SetData overwrites the scratch data wholesale.
func (m *MemoryStore) SetData(_ context.Context, userID int64, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}

	m.data[userID] = copied
	return nil
}

// GetData returns the scratch data, or an empty map when nothing is stored.
func (m *MemoryStore) GetData(_ context.Context, userID int64) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.data[userID]
	if !ok {
		return map[string]any{}, nil
	}

	copied := make(map[string]any, len(stored))
	for k, v := range stored {
		copied[k] = v
	}

	return copied, nil
}

// Clear removes both state and scratch data for the user.
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, userID)
	delete(m.data, userID)
	return nil
}
