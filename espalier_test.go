package espalier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
)

func TestNewRequiresWorkspaceOrStore(t *testing.T) {
	_, err := espalier.New("")
	assert.Error(t, err)
}

func TestEngineLoamRoundTrip(t *testing.T) {
	workspace := t.TempDir()
	ctx := context.Background()

	engine, err := espalier.New(workspace)
	require.NoError(t, err)

	id, err := engine.Create(ctx, "cart")
	require.NoError(t, err)
	require.Equal(t, "cart", id)

	b, err := engine.Open(ctx, "cart")
	require.NoError(t, err)
	require.NoError(t, b.AddSlice(domain.Slice{
		ID: "slice-add-item", Index: 0, Title: "Add Item to Cart", SliceType: domain.SliceStateChange,
	}))
	require.NoError(t, b.AddElement("slice-add-item", domain.Element{
		ID: "cmd-add-item", Title: "Add Item", Type: domain.ElementCommand,
	}))
	require.NoError(t, b.AddElement("slice-add-item", domain.Element{
		ID: "evt-item-added", Title: "Item Added", Type: domain.ElementEvent,
	}))
	require.NoError(t, b.Connect("cmd-add-item", "evt-item-added"))
	warnings, err := b.CommitSlice("slice-add-item")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.NoError(t, engine.Save(ctx, "cart", b))

	// A fresh engine over the same workspace sees the committed model.
	reopened, err := espalier.New(workspace)
	require.NoError(t, err)
	b2, err := reopened.Open(ctx, "cart")
	require.NoError(t, err)
	m := b2.Model()
	require.Len(t, m.Slices, 1)
	assert.Len(t, m.Slices[0].Commands, 1)
	assert.Len(t, m.Slices[0].Events, 1)

	ids, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cart"}, ids)
}

func TestEngineCreateResolvesCollisions(t *testing.T) {
	engine, err := espalier.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	id1, err := engine.Create(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "cart", id1)

	id2, err := engine.Create(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "cart-2", id2)
}

func TestEngineMemoryStoreDuplicateCreate(t *testing.T) {
	engine, err := espalier.New("", espalier.WithStore(memory.NewStore()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Create(ctx, "cart")
	require.NoError(t, err)

	_, err = engine.Create(ctx, "cart")
	var dup *domain.DuplicateIDError
	assert.ErrorAs(t, err, &dup)
}

func TestEngineOpenMissing(t *testing.T) {
	engine, err := espalier.New("", espalier.WithStore(memory.NewStore()))
	require.NoError(t, err)

	_, err = engine.Open(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestEngineDelete(t *testing.T) {
	engine, err := espalier.New("", espalier.WithStore(memory.NewStore()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Create(ctx, "cart")
	require.NoError(t, err)
	require.NoError(t, engine.Delete(ctx, "cart"))

	_, err = engine.Open(ctx, "cart")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}
