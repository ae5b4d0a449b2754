package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// ModelStore defines the interface for persisting blueprint models.
// Implementations must store drafts as-is: a saved model is only
// guaranteed to satisfy global invariants, not per-slice composition.
type ModelStore interface {
	// Save persists the model under the given id, replacing any
	// previous revision.
	Save(ctx context.Context, modelID string, m *domain.Model) error

	// Load retrieves the model for the given id.
	// Returns domain.ErrModelNotFound if the id does not exist.
	Load(ctx context.Context, modelID string) (*domain.Model, error)

	// Delete removes the model. Deleting an unknown id is not an error.
	Delete(ctx context.Context, modelID string) error

	// List returns the ids of all stored models.
	List(ctx context.Context) ([]string, error)
}

// ModelCreator is an optional store capability: create a model under a
// requested id, resolving collisions by appending a numeric suffix
// ("cart" -> "cart-2" -> "cart-3"). The actual id is returned.
type ModelCreator interface {
	Create(ctx context.Context, modelID string, m *domain.Model) (string, error)
}
