package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
)

// reasonSubmitFailed is the fail reason recorded when the submission
// collaborator rejects a dispatch. The collaborator's own error is logged,
// never exposed on the task.
const (
	reasonSubmitFailed = "submit failed"
	reasonStoreFailed  = "task store unavailable"
)

// Queue owns the task lifecycle from admission to the terminal state.
//
// Dispatch is re-triggered on every admission and every release; there is no
// polling loop. Claiming is atomic in the Admission backend, so concurrent
// Dispatch calls never exceed the running capacity.
type Queue struct {
	store     store.TaskStore
	admission Admission
	submitter Submitter
	notifier  Notifier
	launcher  Launcher
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// NewQueue creates a queue. Dispatches are launched inline on background
// goroutines until SetLauncher installs a different launcher.
func NewQueue(
	taskStore store.TaskStore,
	admission Admission,
	submitter Submitter,
	notifier Notifier,
	logger *slog.Logger,
) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:     taskStore,
		admission: admission,
		submitter: submitter,
		notifier:  notifier,
		logger:    logger.With("component", "task_queue"),
		ctx:       ctx,
		cancel:    cancel,
	}
	q.launcher = inlineLauncher{q: q}
	return q
}

// SetLauncher replaces the launcher used for activated dispatches.
func (q *Queue) SetLauncher(l Launcher) {
	q.launcher = l
}

// Submit persists a new task and admits its dispatch.
//
// The task is saved before admission so a dispatch never references a missing
// task. When the waiting queue is full the task is removed again and
// ErrQueueFull is returned.
func (q *Queue) Submit(ctx context.Context, task *domain.Task, params any) error {
	if !task.Action.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAction, task.Action)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	if err := q.store.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	d := Dispatch{TaskID: task.ID, Action: task.Action, Params: raw}
	placement, err := q.admission.Admit(ctx, d)
	if err != nil {
		if delErr := q.store.Delete(ctx, task.ID); delErr != nil {
			q.logger.Error("failed to remove rejected task",
				"task_id", task.ID,
				"error", delErr)
		}
		if errors.Is(err, ErrQueueFull) {
			q.logger.Warn("task rejected, waiting queue full", "task_id", task.ID)
			return err
		}
		return fmt.Errorf("failed to admit task: %w", err)
	}

	q.logger.Debug("task admitted",
		"task_id", task.ID,
		"action", task.Action,
		"running", placement == PlacedRunning)

	if placement == PlacedRunning {
		if err := q.activate(ctx, task, d); err != nil {
			q.release(ctx, task.ID)
			if delErr := q.store.Delete(ctx, task.ID); delErr != nil {
				q.logger.Error("failed to remove unstarted task",
					"task_id", task.ID,
					"error", delErr)
			}
			q.Dispatch(ctx)
			return err
		}
	}
	q.Dispatch(ctx)
	return nil
}

// Dispatch moves waiting tasks into the running set while capacity allows.
// Each claimed task is marked SUBMITTED, persisted, notified and launched.
//
// A claimed task the store cannot load or save is failed. When even that
// cannot be recorded the task keeps its slot, so the sweeper fails it once it
// is overdue, and dispatching stops until the next trigger.
func (q *Queue) Dispatch(ctx context.Context) {
	for {
		d, err := q.admission.Claim(ctx)
		if err != nil {
			q.logger.Error("failed to claim waiting task", "error", err)
			return
		}
		if d == nil {
			return
		}

		task, err := q.store.Get(ctx, d.TaskID)
		if store.IsNotFoundError(err) {
			q.logger.Warn("dropping dispatch for missing task", "task_id", d.TaskID)
			q.release(ctx, d.TaskID)
			continue
		}
		if err != nil {
			q.logger.Error("failed to load claimed task",
				"task_id", d.TaskID,
				"error", err)
			if failErr := q.Fail(ctx, d.TaskID, reasonStoreFailed); failErr != nil &&
				!errors.Is(failErr, ErrStaleEvent) {
				q.logger.Error("claimed task left for the sweeper",
					"task_id", d.TaskID,
					"error", failErr)
				return
			}
			continue
		}

		if err := q.activate(ctx, task, *d); err != nil {
			q.logger.Error("failed to activate claimed task",
				"task_id", d.TaskID,
				"error", err)
			if failErr := task.Fail(reasonStoreFailed); failErr == nil {
				if err := q.store.Save(ctx, task); err != nil {
					q.logger.Error("claimed task left for the sweeper",
						"task_id", d.TaskID,
						"error", err)
					return
				}
				q.notifier.Notify(task)
			}
			q.release(ctx, d.TaskID)
		}
	}
}

// activate starts a task that already holds a running slot and launches its
// dispatch. A launch failure finishes the task as failed and frees the slot;
// the caller's dispatch loop refills it. An error means the started state
// could not be saved; the slot is still held and the caller decides its fate.
func (q *Queue) activate(ctx context.Context, task *domain.Task, d Dispatch) error {
	if err := task.Start(); err != nil {
		q.logger.Warn("cannot start task, releasing slot",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		q.release(ctx, task.ID)
		return nil
	}
	if err := q.store.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to save started task: %w", err)
	}
	q.notifier.Notify(task)

	if err := q.launcher.Launch(ctx, d); err != nil {
		q.logger.Error("failed to launch dispatch",
			"task_id", task.ID,
			"error", err)
		if err := task.Fail(reasonSubmitFailed); err == nil {
			q.persist(ctx, task)
		}
		q.release(ctx, task.ID)
	}
	return nil
}

// Execute performs the external submission for an activated dispatch. A
// rejected submission fails the task, which frees its slot.
func (q *Queue) Execute(ctx context.Context, d Dispatch) error {
	ref, err := submit(ctx, q.submitter, d)
	if err != nil {
		q.logger.Error("submission rejected",
			"task_id", d.TaskID,
			"action", d.Action,
			"error", err)
		if failErr := q.Fail(ctx, d.TaskID, reasonSubmitFailed); failErr != nil &&
			!errors.Is(failErr, ErrStaleEvent) {
			q.logger.Error("failed to record submission failure",
				"task_id", d.TaskID,
				"error", failErr)
		}
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	q.logger.Info("task submitted",
		"task_id", d.TaskID,
		"action", d.Action,
		"reference", ref)
	return nil
}

// Transition applies fn to a running task, persists the result and notifies.
// When the task reaches a terminal state its slot is released and the next
// waiting task is dispatched.
//
// Events for tasks outside the running set, or transitions the task's state
// rejects, return ErrStaleEvent and leave the store unchanged.
func (q *Queue) Transition(ctx context.Context, taskID string, fn func(*domain.Task) error) (*domain.Task, error) {
	running, err := q.admission.IsRunning(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running set: %w", err)
	}
	if !running {
		return nil, fmt.Errorf("%w: %s not running", ErrStaleEvent, taskID)
	}

	task, err := q.store.Get(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// Expired while running; the slot is dead weight.
			q.release(ctx, taskID)
			q.Dispatch(ctx)
			return nil, fmt.Errorf("%w: %s expired", ErrStaleEvent, taskID)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	wasTerminal := task.Status.Terminal()
	if err := fn(task); err != nil {
		if wasTerminal {
			q.release(ctx, taskID)
			q.Dispatch(ctx)
		}
		if errors.Is(err, domain.ErrTaskTerminal) || errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: %v", ErrStaleEvent, err)
		}
		return nil, err
	}

	if err := q.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	q.notifier.Notify(task)

	if task.Status.Terminal() {
		q.logger.Info("task finished",
			"task_id", task.ID,
			"status", task.Status,
			"fail_reason", task.FailReason)
		q.release(ctx, taskID)
		q.Dispatch(ctx)
	}
	return task, nil
}

// Fail moves a running task to FAILURE.
func (q *Queue) Fail(ctx context.Context, taskID, reason string) error {
	_, err := q.Transition(ctx, taskID, func(t *domain.Task) error {
		return t.Fail(reason)
	})
	return err
}

// GetRunningTask returns the task if it currently holds a running slot.
func (q *Queue) GetRunningTask(ctx context.Context, taskID string) (*domain.Task, error) {
	running, err := q.admission.IsRunning(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running set: %w", err)
	}
	if !running {
		return nil, ErrNotRunning
	}
	return q.store.Get(ctx, taskID)
}

// GetTask returns a task by ID regardless of its state.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return q.store.Get(ctx, taskID)
}

// Running lists the tasks currently holding a running slot.
func (q *Queue) Running(ctx context.Context) ([]string, error) {
	return q.admission.Running(ctx)
}

// Release frees a running slot without touching the task and refills it.
func (q *Queue) Release(ctx context.Context, taskID string) {
	q.release(ctx, taskID)
	q.Dispatch(ctx)
}

// Stats returns queue occupancy.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	return q.admission.Stats(ctx)
}

// Recover dispatches whatever is waiting. Called on startup so a backlog left
// by a previous process is picked up without a new submission.
func (q *Queue) Recover(ctx context.Context) {
	q.logger.Info("recovering waiting tasks")
	q.Dispatch(ctx)
}

// Stop cancels in-flight inline executions and waits for them to return.
func (q *Queue) Stop() {
	q.cancel()
	if r := q.wg.WaitAndRecover(); r != nil {
		q.logger.Error("inline execution panicked", "panic", r.Value)
	}
}

func (q *Queue) release(ctx context.Context, taskID string) {
	if err := q.admission.Release(ctx, taskID); err != nil {
		q.logger.Error("failed to release running slot",
			"task_id", taskID,
			"error", err)
	}
}

func (q *Queue) persist(ctx context.Context, task *domain.Task) {
	if err := q.store.Save(ctx, task); err != nil {
		q.logger.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return
	}
	q.notifier.Notify(task)
}

// inlineLauncher executes dispatches on goroutines tracked by the queue.
type inlineLauncher struct {
	q *Queue
}

// Launch implements Launcher.
func (l inlineLauncher) Launch(_ context.Context, d Dispatch) error {
	l.q.wg.Go(func() {
		_ = l.q.Execute(l.q.ctx, d)
	})
	return nil
}
