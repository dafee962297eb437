package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a project.
// It must exceed the longest expected run.
const DefaultLockTTL = 15 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates project access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ProjectStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-project locks

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.ProjectStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(projectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[projectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, projectID)
	}
}

// Load retrieves an existing project from the store.
func (m *Manager) Load(ctx context.Context, projectID string) (*domain.Project, error) {
	var project *domain.Project
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		project, err = m.store.Load(ctx, projectID)
		return err
	})
	return project, err
}

// LoadOrCreate loads a project, creating and persisting an empty one if it
// does not exist yet.
func (m *Manager) LoadOrCreate(ctx context.Context, projectID string) (*domain.Project, error) {
	var project *domain.Project
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		project, err = m.loadOrNew(ctx, projectID)
		if err != nil || !project.UpdatedAt.IsZero() {
			return err
		}
		project.UpdatedAt = m.now().UTC()
		if err := m.store.Save(ctx, projectID, project); err != nil {
			return fmt.Errorf("failed to initialize project: %w", err)
		}
		return nil
	})
	return project, err
}

// Update runs fn on the current snapshot (or an empty one) while holding the
// project lock, then saves the result. Nothing is saved if fn fails.
func (m *Manager) Update(ctx context.Context, projectID string, fn func(context.Context, *domain.Project) error) (*domain.Project, error) {
	var project *domain.Project
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		project, err = m.loadOrNew(ctx, projectID)
		if err != nil {
			return err
		}
		if err := fn(ctx, project); err != nil {
			return err
		}
		project.ID = projectID
		project.UpdatedAt = m.now().UTC()
		return m.store.Save(ctx, projectID, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (m *Manager) loadOrNew(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := m.store.Load(ctx, projectID)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, domain.ErrProjectNotFound) {
		return nil, fmt.Errorf("failed to check project existence: %w", err)
	}
	return &domain.Project{ID: projectID}, nil
}

// Save persists the project.
func (m *Manager) Save(ctx context.Context, projectID string, project *domain.Project) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Save(ctx, projectID, project)
	})
}

// Delete removes the project from the store.
func (m *Manager) Delete(ctx context.Context, projectID string) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, projectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying project store.
func (m *Manager) Store() ports.ProjectStore {
	return m.store
}

// WithLock executes fn while holding the lock for the project. It is not
// reentrant: fn must use the store directly.
func (m *Manager) WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error {
	entry := m.acquire(projectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(projectID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, projectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release even if ctx was canceled during the run.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"project_id", projectID,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}
