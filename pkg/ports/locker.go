package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker. Releasing a
// lock that has already expired is not an error.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes prompt runs on one project across replicas
// sharing a ProjectStore. The session manager takes it after its in-process
// mutex, so a single replica never contends with itself.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl even if the holder never releases it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
