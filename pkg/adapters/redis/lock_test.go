package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/redis"
)

func TestLocker_Exclusive(t *testing.T) {
	_, client := newTestClient(t)
	locker := redis.NewLocker(client, "espalier:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "model-1", 30*time.Second)
	require.NoError(t, err)

	// A second acquisition must block until the context runs out.
	shortCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "model-1", 30*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	// Released: the next acquisition succeeds.
	unlock2, err := locker.Lock(ctx, "model-1", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_DifferentKeysIndependent(t *testing.T) {
	_, client := newTestClient(t)
	locker := redis.NewLocker(client, "espalier:")
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "model-a", 30*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlockA(ctx) }()

	unlockB, err := locker.Lock(ctx, "model-b", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))
}

func TestLocker_UnlockIsOwnerChecked(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "espalier:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "model-1", 30*time.Second)
	require.NoError(t, err)

	// Simulate expiry plus re-acquisition by someone else.
	mr.Del("espalier:lock:model-1")
	require.NoError(t, mr.Set("espalier:lock:model-1", "someone-else"))

	require.NoError(t, unlock(ctx))
	val, err := mr.Get("espalier:lock:model-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val, "unlock must not release a lock it no longer owns")
}

func TestLocker_CancelledContext(t *testing.T) {
	_, client := newTestClient(t)
	locker := redis.NewLocker(client, "espalier:")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := locker.Lock(ctx, "model-1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
