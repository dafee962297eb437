package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/river-berlin/unibase/pkg/domain"
)

// Store implements ports.ProjectStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Project
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Project),
	}
}

// Save persists the project in memory.
func (s *Store) Save(ctx context.Context, projectID string, project *domain.Project) error {
	copied := project.Clone()
	copied.ID = projectID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[projectID] = copied
	return nil
}

// Load retrieves the project from memory.
func (s *Store) Load(ctx context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.data[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	// Copy on read so callers can't mutate the stored snapshot
	return project.Clone(), nil
}

// Delete removes the project.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, projectID)
	return nil
}

// List returns all stored project IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
