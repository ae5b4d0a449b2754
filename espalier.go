package espalier

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/espalier/internal/logging"
	loamAdapter "github.com/aretw0/espalier/pkg/adapters/loam"
	"github.com/aretw0/espalier/pkg/builder"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/session"
)

// Engine is the high-level entry point for the Espalier library. It
// wraps a model store behind the session manager and hands out
// transactional builders for individual models.
type Engine struct {
	store   ports.ModelStore
	locker  ports.DistributedLocker
	manager *session.Manager
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	Name    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a custom ModelStore, bypassing the default Loam
// workspace initialization.
func WithStore(s ports.ModelStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed locking for multi-instance deployments.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLifecycleHooks registers observability hooks, propagated to every
// builder the engine hands out.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Espalier Engine.
// By default it uses a Loam workspace at the given path; if WithStore is
// provided, workspacePath may be empty and Loam is skipped.
func New(workspacePath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		if workspacePath == "" {
			return nil, fmt.Errorf("workspacePath is required when no custom store is provided")
		}
		store, err := loamAdapter.New(workspacePath)
		if err != nil {
			return nil, err
		}
		eng.store = store
		eng.Name = filepath.Base(store.BasePath())
	} else if workspacePath != "" {
		eng.Name = filepath.Base(workspacePath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("workspace", eng.Name)
	}

	managerOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.manager = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

// Create stores a new empty model under the requested id. When the store
// supports collision resolution the id may come back suffixed ("cart"
// becomes "cart-2" if taken); otherwise an existing id is an error.
func (e *Engine) Create(ctx context.Context, modelID string) (string, error) {
	var actual string
	err := e.manager.WithLock(ctx, modelID, func(ctx context.Context) error {
		empty := domain.NewModel()
		if creator, ok := e.store.(ports.ModelCreator); ok {
			var err error
			actual, err = creator.Create(ctx, modelID, empty)
			return err
		}
		if _, err := e.store.Load(ctx, modelID); err == nil {
			return &domain.DuplicateIDError{ID: modelID, Existing: "store"}
		}
		actual = modelID
		return e.store.Save(ctx, modelID, empty)
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("model created", "model_id", actual)
	return actual, nil
}

// Open loads a model and returns a transactional builder over it. The
// builder operates on a private copy; call Save to persist its state.
func (e *Engine) Open(ctx context.Context, modelID string) (*builder.Builder, error) {
	m, err := e.manager.Load(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return builder.Resume(m,
		builder.WithLogger(e.logger),
		builder.WithHooks(e.hooks),
	)
}

// Save persists the builder's current model under the given id.
func (e *Engine) Save(ctx context.Context, modelID string, b *builder.Builder) error {
	return e.manager.Save(ctx, modelID, b.Model())
}

// Delete removes a stored model.
func (e *Engine) Delete(ctx context.Context, modelID string) error {
	return e.manager.Delete(ctx, modelID)
}

// List returns the ids of all stored models.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// NewBuilder returns a builder over a fresh empty model, detached from
// the store until saved.
func (e *Engine) NewBuilder() *builder.Builder {
	return builder.New(
		builder.WithLogger(e.logger),
		builder.WithHooks(e.hooks),
	)
}

// Store returns the underlying model store.
func (e *Engine) Store() ports.ModelStore {
	return e.store
}
