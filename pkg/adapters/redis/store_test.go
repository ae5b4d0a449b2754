package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	ports.RunModelStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newTestClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	modelID := "model-ttl"

	err := store.Save(ctx, modelID, domain.NewModel())
	require.NoError(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, modelID)

	// Advance miniredis past the TTL: the key expires and List prunes the
	// index entry lazily.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, modelID)
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, modelID)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newTestClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "m1", domain.NewModel()))
	assert.True(t, mr.Exists("custom:m1"), "model key should carry the custom prefix")
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr, client := newTestClient(t)

	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, mr.Set("espalier:model:bad", "not json"))
	_, err := store.Load(ctx, "bad")
	assert.Error(t, err)
}
