package asynqx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/phrazzld/mjqueue/internal/task"
)

// TaskTypeDispatch is the asynq task type carrying a task.Dispatch.
const TaskTypeDispatch = "mjqueue:dispatch"

// DefaultQueue is the asynq queue used when none is configured.
const DefaultQueue = "dispatch"

// Launcher enqueues dispatches as asynq tasks. It implements task.Launcher.
type Launcher struct {
	client *asynq.Client
	queue  string
}

var _ task.Launcher = (*Launcher)(nil)

// NewLauncher creates a Launcher. An empty queue uses DefaultQueue.
func NewLauncher(redisOpt asynq.RedisConnOpt, queue string) *Launcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Launcher{
		client: asynq.NewClient(redisOpt),
		queue:  queue,
	}
}

// Launch implements task.Launcher. The task ID doubles as the asynq task ID,
// so a dispatch is enqueued at most once.
func (l *Launcher) Launch(ctx context.Context, d task.Dispatch) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch: %w", err)
	}

	_, err = l.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeDispatch, payload),
		asynq.Queue(l.queue),
		asynq.TaskID(d.TaskID),
		asynq.MaxRetry(0),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}
	return nil
}

// Close releases the asynq client.
func (l *Launcher) Close() error {
	return l.client.Close()
}
