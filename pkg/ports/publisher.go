package ports

import (
	"context"

	"github.com/river-berlin/unibase/pkg/domain"
)

// EventPublisher delivers scene events to external subscribers.
// Delivery is best effort; callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SceneEvent) error
}
