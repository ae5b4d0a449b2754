package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
)

// contractModel builds a small two-slice draft for contract tests.
func contractModel() *domain.Model {
	m := &domain.Model{
		Slices: []domain.Slice{
			{
				ID:        "slice-add-item",
				Index:     1,
				Title:     "Add Item to Cart",
				SliceType: domain.SliceStateChange,
				Commands: []domain.Element{{
					ID:    "cmd-add-item",
					Title: "Add Item to Cart",
					Type:  domain.ElementCommand,
					Dependencies: []domain.Dependency{{
						ID: "evt-item-added", Type: domain.DependencyOutbound,
						Title: "Item Added to Cart", ElementType: domain.ElementEvent,
					}},
				}},
				Events: []domain.Element{{
					ID:    "evt-item-added",
					Title: "Item Added to Cart",
					Type:  domain.ElementEvent,
					Dependencies: []domain.Dependency{{
						ID: "cmd-add-item", Type: domain.DependencyInbound,
						Title: "Add Item to Cart", ElementType: domain.ElementCommand,
					}},
				}},
			},
		},
	}
	m.Reindex()
	return m
}

// RunModelStoreContract runs a suite of tests verifying that a ModelStore
// implementation adheres to the interface contract.
func RunModelStoreContract(t *testing.T, store ModelStore) {
	ctx := context.Background()
	modelID := "contract-test-model-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		m := contractModel()

		err := store.Save(ctx, modelID, m)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, modelID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Slices, 1)
		assert.Equal(t, "slice-add-item", loaded.Slices[0].ID)
		el, ok := loaded.Element("evt-item-added")
		require.True(t, ok, "loaded model should be indexed")
		assert.Equal(t, domain.ElementEvent, el.Type)
	})

	t.Run("Load Isolation", func(t *testing.T) {
		m := contractModel()
		require.NoError(t, store.Save(ctx, modelID, m))

		loaded, err := store.Load(ctx, modelID)
		require.NoError(t, err)
		loaded.Slices[0].Title = "mutated by caller"

		again, err := store.Load(ctx, modelID)
		require.NoError(t, err)
		assert.Equal(t, "Add Item to Cart", again.Slices[0].Title, "store must not leak caller mutations")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+modelID)
		assert.ErrorIs(t, err, domain.ErrModelNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, modelID, contractModel()))

		err := store.Delete(ctx, modelID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, modelID)
		assert.ErrorIs(t, err, domain.ErrModelNotFound, "Load after Delete should return ErrModelNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := modelID + "-1"
		id2 := modelID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractModel()))
		require.NoError(t, store.Save(ctx, id2, contractModel()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		models, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, models, id1)
		assert.Contains(t, models, id2)
	})
}
