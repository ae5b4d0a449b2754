package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

func TestLoadOrCreate(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	m, err := mgr.LoadOrCreate(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.Slices)

	// The empty model was persisted.
	again, err := mgr.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, again.Slices)
}

func TestLoadMissing(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	_, err := mgr.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestWithLockExclusivePerModel(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	var inside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "same-model", func(ctx context.Context) error {
				if n := atomic.AddInt32(&inside, 1); n != 1 {
					t.Errorf("lock admitted %d holders", n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestLockEntriesAreGarbageCollected(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "m", func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "entries must be removed once the ref count drops to zero")
}

// recordingLocker records lock/unlock calls.
type recordingLocker struct {
	mu      sync.Mutex
	locked  []string
	unlocks int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		l.unlocks++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestDistributedLockerPassThrough(t *testing.T) {
	locker := &recordingLocker{}
	mgr := NewManager(memory.NewStore(), WithLocker(locker))
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "model-1", domain.NewModel()))

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Equal(t, []string{"model-1"}, locker.locked)
	assert.Equal(t, 1, locker.unlocks)
}
