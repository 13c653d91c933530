package task

import (
	"context"
	"sync"

	"github.com/phrazzld/mjqueue/internal/domain"
)

// MockSubmitter implements Submitter for testing. It records every call and
// returns the result of SubmitFn, which defaults to a fixed reference.
type MockSubmitter struct {
	mu       sync.Mutex
	calls    []domain.Action
	params   []any
	SubmitFn func(ctx context.Context, action domain.Action, params any) (string, error)
}

// NewMockSubmitter creates a MockSubmitter that accepts every submission.
func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{
		SubmitFn: func(context.Context, domain.Action, any) (string, error) {
			return "mock-reference", nil
		},
	}
}

// Calls returns the actions submitted so far, in order.
func (m *MockSubmitter) Calls() []domain.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Action(nil), m.calls...)
}

// Params returns the decoded parameters of every call, in order.
func (m *MockSubmitter) Params() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.params...)
}

func (m *MockSubmitter) record(ctx context.Context, action domain.Action, p any) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, action)
	m.params = append(m.params, p)
	fn := m.SubmitFn
	m.mu.Unlock()
	return fn(ctx, action, p)
}

func (m *MockSubmitter) Generate(ctx context.Context, p domain.GenerateParams) (string, error) {
	return m.record(ctx, domain.ActionGenerate, p)
}

func (m *MockSubmitter) Upscale(ctx context.Context, p domain.UpscaleParams) (string, error) {
	return m.record(ctx, domain.ActionUpscale, p)
}

func (m *MockSubmitter) Vary(ctx context.Context, p domain.VaryParams) (string, error) {
	return m.record(ctx, domain.ActionVary, p)
}

func (m *MockSubmitter) Reset(ctx context.Context, p domain.ResetParams) (string, error) {
	return m.record(ctx, domain.ActionReset, p)
}

func (m *MockSubmitter) Describe(ctx context.Context, p domain.DescribeParams) (string, error) {
	return m.record(ctx, domain.ActionDescribe, p)
}

func (m *MockSubmitter) Blend(ctx context.Context, p domain.BlendParams) (string, error) {
	return m.record(ctx, domain.ActionBlend, p)
}

// RecordingNotifier stores a copy of every notified task.
type RecordingNotifier struct {
	mu    sync.Mutex
	tasks []domain.Task
}

// Notify implements Notifier.
func (n *RecordingNotifier) Notify(t *domain.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, *t)
}

// Statuses returns the statuses notified for taskID, in order.
func (n *RecordingNotifier) Statuses(taskID string) []domain.TaskStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.TaskStatus
	for _, t := range n.tasks {
		if t.ID == taskID {
			out = append(out, t.Status)
		}
	}
	return out
}

// Count returns the number of notifications received.
func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tasks)
}

// ManualLauncher records launched dispatches without executing them, so tests
// control when the submission happens.
type ManualLauncher struct {
	mu         sync.Mutex
	dispatches []Dispatch
	Err        error
}

// Launch implements Launcher.
func (l *ManualLauncher) Launch(_ context.Context, d Dispatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.dispatches = append(l.dispatches, d)
	return nil
}

// Launched returns the task IDs launched so far, in order.
func (l *ManualLauncher) Launched() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.dispatches))
	for _, d := range l.dispatches {
		ids = append(ids, d.TaskID)
	}
	return ids
}

// Dispatches returns the launched dispatches.
func (l *ManualLauncher) Dispatches() []Dispatch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Dispatch(nil), l.dispatches...)
}
