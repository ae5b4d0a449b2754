package loam_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loamAdapter "github.com/aretw0/espalier/pkg/adapters/loam"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

func newTestStore(t *testing.T) *loamAdapter.Store {
	t.Helper()
	store, err := loamAdapter.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLoamStore_Contract(t *testing.T) {
	ports.RunModelStoreContract(t, newTestStore(t))
}

func TestLoamStore_CreateResolvesCollisions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.Create(ctx, "cart", domain.NewModel())
	require.NoError(t, err)
	assert.Equal(t, "cart", id1)

	id2, err := store.Create(ctx, "cart", domain.NewModel())
	require.NoError(t, err)
	assert.Equal(t, "cart-2", id2)

	id3, err := store.Create(ctx, "cart", domain.NewModel())
	require.NoError(t, err)
	assert.Equal(t, "cart-3", id3)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cart", "cart-2", "cart-3"}, ids)
}

func TestLoamStore_DocumentShape(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := &domain.Model{Slices: []domain.Slice{{
		ID: "s1", Index: 0, Title: "Add Item to Cart", SliceType: domain.SliceStateChange,
	}}}
	m.Reindex()
	require.NoError(t, store.Save(ctx, "cart", m))

	raw, err := os.ReadFile(filepath.Join(store.BasePath(), "cart.md"))
	require.NoError(t, err)
	text := string(raw)

	// Frontmatter metadata is generated from the model content; the body
	// is the canonical JSON.
	assert.Contains(t, text, "Add Item to Cart")
	assert.Contains(t, text, "slice_count")
	assert.True(t, strings.Contains(text, `"sliceType": "STATE_CHANGE"`), "body should hold the canonical JSON")
}

func TestLoamStore_DeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
}
