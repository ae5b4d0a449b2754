package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates model access, ensuring one writer per model id.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ModelStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new session manager over the given store.
func NewManager(store ports.ModelStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference
// count. The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(modelID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[modelID]
	if !exists {
		entry = &lockEntry{}
		m.locks[modelID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(modelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[modelID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, modelID)
	}
}

// Load retrieves an existing model from the store.
func (m *Manager) Load(ctx context.Context, modelID string) (*domain.Model, error) {
	var model *domain.Model
	err := m.WithLock(ctx, modelID, func(ctx context.Context) error {
		var err error
		model, err = m.store.Load(ctx, modelID)
		return err
	})
	return model, err
}

// LoadOrCreate tries to load a model; if the id does not exist yet an
// empty model is persisted and returned.
func (m *Manager) LoadOrCreate(ctx context.Context, modelID string) (*domain.Model, error) {
	var model *domain.Model
	err := m.WithLock(ctx, modelID, func(ctx context.Context) error {
		var err error
		model, err = m.store.Load(ctx, modelID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrModelNotFound) {
			return fmt.Errorf("failed to check model existence: %w", err)
		}

		model = domain.NewModel()
		if err := m.store.Save(ctx, modelID, model); err != nil {
			return fmt.Errorf("failed to initialize model: %w", err)
		}
		return nil
	})
	return model, err
}

// Save persists the model.
func (m *Manager) Save(ctx context.Context, modelID string, model *domain.Model) error {
	return m.WithLock(ctx, modelID, func(ctx context.Context) error {
		return m.store.Save(ctx, modelID, model)
	})
}

// Delete removes the model from the store.
func (m *Manager) Delete(ctx context.Context, modelID string) error {
	return m.WithLock(ctx, modelID, func(ctx context.Context) error {
		return m.store.Delete(ctx, modelID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying model store.
func (m *Manager) Store() ports.ModelStore {
	return m.store
}

// WithLock executes fn while holding the lock for the model id.
func (m *Manager) WithLock(ctx context.Context, modelID string, fn func(context.Context) error) error {
	entry := m.acquire(modelID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(modelID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, modelID, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"model_id", modelID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
