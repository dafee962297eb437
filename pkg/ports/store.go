package ports

import (
	"context"

	"github.com/river-berlin/unibase/pkg/domain"
)

// ProjectStore defines the interface for persisting project snapshots.
// Writes are last-writer-wins; callers serialize runs with a session manager.
type ProjectStore interface {
	// Save persists the snapshot for a given project ID.
	Save(ctx context.Context, projectID string, project *domain.Project) error

	// Load retrieves the snapshot for a given project ID.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	Load(ctx context.Context, projectID string) (*domain.Project, error)

	// Delete removes the snapshot for a given project ID.
	Delete(ctx context.Context, projectID string) error

	// List returns the IDs of stored projects.
	List(ctx context.Context) ([]string, error)
}
