package domain

import (
	"fmt"
	"maps"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusNotStart   TaskStatus = "not_start"
	TaskStatusSubmitted  TaskStatus = "submitted"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailure    TaskStatus = "failure"
)

// Terminal reports whether no further transitions are allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}

// Well-known result property keys populated by the correlation listener.
const (
	PropMessageID   = "msg_id"
	PropMessageHash = "msg_hash"
	PropAttachment  = "attachment"
)

// defaultFailReason keeps fail_reason non-empty for every failed task.
const defaultFailReason = "task failed"

// Task is one unit of generation work tracked from submission to its terminal
// state. Timestamps are Unix milliseconds and stay 0 until the matching stage
// is reached.
type Task struct {
	ID          string         `json:"id"`
	Action      Action         `json:"action"`
	Prompt      string         `json:"prompt,omitempty"`
	PromptEn    string         `json:"prompt_en,omitempty"`
	NotifyHook  string         `json:"notify_hook,omitempty"`
	SubmitTime  int64          `json:"submit_time"`
	StartTime   int64          `json:"start_time"`
	FinishTime  int64          `json:"finish_time"`
	Status      TaskStatus     `json:"status"`
	Progress    string         `json:"progress"`
	FailReason  string         `json:"fail_reason,omitempty"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties"`
}

// NewTask creates a task in the NOT_START state with its submit time set.
func NewTask(id string, action Action, prompt, promptEn, notifyHook string) (*Task, error) {
	if id == "" {
		return nil, ErrEmptyTaskID
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	return &Task{
		ID:         id,
		Action:     action,
		Prompt:     prompt,
		PromptEn:   promptEn,
		NotifyHook: notifyHook,
		SubmitTime: nowMillis(),
		Status:     TaskStatusNotStart,
		Progress:   "0%",
		Properties: map[string]any{},
	}, nil
}

// Start marks the task as handed to the external endpoint.
func (t *Task) Start() error {
	if t.Status.Terminal() {
		return ErrTaskTerminal
	}
	if t.Status != TaskStatusNotStart {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, t.Status)
	}

	t.StartTime = after(t.SubmitTime)
	t.Status = TaskStatusSubmitted
	t.Progress = "0%"
	return nil
}

// Advance records a progress update. A nil progress leaves the progress string
// untouched; properties are merged into the existing ones. Replaying the same
// update yields the same task.
func (t *Task) Advance(progress *int, properties map[string]any) error {
	if t.Status.Terminal() {
		return ErrTaskTerminal
	}
	if t.Status != TaskStatusSubmitted && t.Status != TaskStatusInProgress {
		return fmt.Errorf("%w: advance from %s", ErrInvalidTransition, t.Status)
	}

	t.Status = TaskStatusInProgress
	if progress != nil {
		t.Progress = fmt.Sprintf("%d%%", *progress)
	}
	t.mergeProperties(properties)
	return nil
}

// Succeed moves the task to SUCCESS and records its result properties.
func (t *Task) Succeed(properties map[string]any) error {
	if t.Status.Terminal() {
		return ErrTaskTerminal
	}

	t.FinishTime = after(t.StartTime, t.SubmitTime)
	t.Status = TaskStatusSuccess
	t.Progress = "100%"
	t.mergeProperties(properties)
	return nil
}

// Fail moves the task to FAILURE with the given reason.
func (t *Task) Fail(reason string) error {
	if t.Status.Terminal() {
		return ErrTaskTerminal
	}
	if reason == "" {
		reason = defaultFailReason
	}

	t.FinishTime = after(t.StartTime, t.SubmitTime)
	t.Status = TaskStatusFailure
	t.Progress = ""
	t.FailReason = reason
	return nil
}

// Property returns a result property as a string, or "" when unset.
func (t *Task) Property(key string) string {
	v, ok := t.Properties[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (t *Task) mergeProperties(properties map[string]any) {
	if len(properties) == 0 {
		return
	}
	if t.Properties == nil {
		t.Properties = make(map[string]any, len(properties))
	}
	maps.Copy(t.Properties, properties)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// after returns the current time in milliseconds, bumped so it is strictly
// greater than every given timestamp.
func after(ts ...int64) int64 {
	now := nowMillis()
	for _, t := range ts {
		if now <= t {
			now = t + 1
		}
	}
	return now
}
