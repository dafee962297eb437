package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/river-berlin/unibase/pkg/adapters/memory"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
	"github.com/river-berlin/unibase/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, id string, p *domain.Project) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, id, p)
}

func (s SlowStore) Load(ctx context.Context, id string) (*domain.Project, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func TestManager_UpdateSerializesReadModifyWrite(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(_ context.Context, p *domain.Project) error {
				p.History = append(p.History, domain.ConversationEntry{Role: domain.RoleUser, Content: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	project, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, project.History, writers, "no update may be lost")
}

func TestManager_UpdateFailureDoesNotSave(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.Update(ctx, "p", func(_ context.Context, p *domain.Project) error {
		p.SCAD = "cube([1, 1, 1]);"
		return errors.New("model unavailable")
	})
	assert.EqualError(t, err, "model unavailable")

	_, err = manager.Load(ctx, "p")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestManager_UpdateStampsProject(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	manager := session.NewManager(memory.NewStore(), session.WithClock(func() time.Time { return fixed }))

	project, err := manager.Update(context.Background(), "stamped", func(context.Context, *domain.Project) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "stamped", project.ID)
	assert.Equal(t, fixed, project.UpdatedAt)
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			project, err := manager.LoadOrCreate(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, project)
		}()
	}
	wg.Wait()

	project, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, project.ID)
	assert.Empty(t, project.SCAD)
	assert.False(t, project.UpdatedAt.IsZero())
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	ttls     []time.Duration
	released int
	fail     error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.ttls = append(l.ttls, ttl)
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	err := manager.WithLock(ctx, "desk", func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"desk"}, locker.keys)
	assert.Equal(t, []time.Duration{time.Minute}, locker.ttls)
	assert.Equal(t, 1, locker.released, "unlock must run even after cancellation")
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{fail: errors.New("redis down")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	err := manager.WithLock(context.Background(), "desk", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis down")
	assert.False(t, called)
}
