package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/phrazzld/mjqueue/internal/domain"
)

// Common errors returned by the queue.
var (
	// ErrQueueFull is returned by Submit when the waiting queue is at capacity.
	// The admission is rejected and nothing is retried.
	ErrQueueFull = errors.New("task queue is full")

	// ErrStaleEvent is returned when a transition targets a task that is not
	// in the running set or can no longer change state.
	ErrStaleEvent = errors.New("stale task event")

	// ErrNotRunning is returned by GetRunningTask for tasks outside the running set.
	ErrNotRunning = errors.New("task is not running")

	// ErrUnknownAction is returned when no handler exists for a dispatch action.
	ErrUnknownAction = errors.New("no handler for action")

	// ErrInvalidParams is returned when dispatch parameters cannot be decoded
	// into the parameter type of their action.
	ErrInvalidParams = errors.New("invalid dispatch parameters")

	// ErrSubmissionFailed wraps errors returned by the submission collaborator.
	ErrSubmissionFailed = errors.New("submission failed")
)

// Dispatch is a waiting queue entry: the task to activate, its action, and the
// parameters handed to the submission collaborator.
type Dispatch struct {
	TaskID string          `json:"task_id"`
	Action domain.Action   `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Placement tells where Admit put a dispatch.
type Placement int

const (
	// PlacedWaiting means the dispatch sits in the waiting queue.
	PlacedWaiting Placement = iota
	// PlacedRunning means the task went straight into the running set because
	// nothing was waiting and a slot was free.
	PlacedRunning
)

// Stats is a snapshot of queue occupancy.
type Stats struct {
	Waiting         int64 `json:"waiting"`
	Running         int64 `json:"running"`
	WaitSize        int   `json:"wait_size"`
	ConcurrencySize int   `json:"concurrency_size"`
}

// Admission is the shared waiting queue plus running set. Every method is
// atomic, so the capacity bounds hold for any interleaving of callers,
// including callers on other nodes sharing the same backend.
// Version: 1.0
type Admission interface {
	// Admit places d straight into the running set when nothing is waiting and
	// a slot is free, otherwise appends it to the waiting queue.
	// Returns ErrQueueFull if the waiting queue is at capacity.
	Admit(ctx context.Context, d Dispatch) (Placement, error)

	// Claim pops the head of the waiting queue into the running set if a slot
	// is free. Returns nil when the queue is empty or no slot is free.
	Claim(ctx context.Context) (*Dispatch, error)

	// Release removes a task from the running set. Releasing a non-member is a no-op.
	Release(ctx context.Context, taskID string) error

	// IsRunning reports running set membership.
	IsRunning(ctx context.Context, taskID string) (bool, error)

	// Running lists the IDs in the running set.
	Running(ctx context.Context) ([]string, error)

	// Stats returns current sizes and capacities.
	Stats(ctx context.Context) (Stats, error)
}

// Submitter is the external submission collaborator. Each action has its own
// typed entry point; the returned string is an opaque external reference.
// Version: 1.0
type Submitter interface {
	Generate(ctx context.Context, p domain.GenerateParams) (string, error)
	Upscale(ctx context.Context, p domain.UpscaleParams) (string, error)
	Vary(ctx context.Context, p domain.VaryParams) (string, error)
	Reset(ctx context.Context, p domain.ResetParams) (string, error)
	Describe(ctx context.Context, p domain.DescribeParams) (string, error)
	Blend(ctx context.Context, p domain.BlendParams) (string, error)
}

// Notifier receives every persisted task transition. Notify must not block
// on delivery.
type Notifier interface {
	Notify(task *domain.Task)
}

// Launcher hands an activated dispatch to whatever executes the submission.
// Launch must return without waiting for the external call.
type Launcher interface {
	Launch(ctx context.Context, d Dispatch) error
}

// Executor runs one dispatch against the submission collaborator and records
// a failure on the task when the submission is rejected.
type Executor interface {
	Execute(ctx context.Context, d Dispatch) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(*domain.Task) {}
