package store

import (
	"context"
	"time"

	"github.com/phrazzld/mjqueue/internal/domain"
)

// DefaultTaskTTL is how long a task stays in the store after its last save.
const DefaultTaskTTL = 7 * 24 * time.Hour

// TaskStore defines the interface for persisting tasks.
// Implementations must be safe for concurrent use; each operation is atomic
// with respect to a single task ID and writes are last-writer-wins.
type TaskStore interface {
	// Save upserts the task and resets its retention window.
	Save(ctx context.Context, task *domain.Task) error

	// Get loads a task by ID.
	// Returns ErrTaskNotFound if the task is absent or expired.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// Delete removes a task. Deleting a missing task is not an error.
	Delete(ctx context.Context, id string) error
}

// Purger is implemented by stores whose expiry is not enforced by the backend
// itself and need an explicit cleanup pass.
type Purger interface {
	// PurgeExpired removes tasks whose retention window has passed and
	// returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
