// Package memory provides an in-process ModelStore, mainly for tests and
// short-lived authoring sessions.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.ModelStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Model
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Model),
	}
}

// Save persists a deep copy of the model, isolating the store from later
// caller mutations.
func (s *Store) Save(ctx context.Context, modelID string, m *domain.Model) error {
	cp := m.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[modelID] = cp
	return nil
}

// Load retrieves a deep copy of the model.
func (s *Store) Load(ctx context.Context, modelID string) (*domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[modelID]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return m.Clone(), nil
}

// Delete removes the model.
func (s *Store) Delete(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, modelID)
	return nil
}

// List returns the stored model ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
