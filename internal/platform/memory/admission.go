package memory

import (
	"context"
	"sync"

	"github.com/phrazzld/mjqueue/internal/task"
)

// Admission is a mutex-guarded waiting queue and running set.
type Admission struct {
	mu              sync.Mutex
	waiting         []task.Dispatch
	running         map[string]struct{}
	waitSize        int
	concurrencySize int
}

var _ task.Admission = (*Admission)(nil)

// NewAdmission creates an admission index with the given capacities.
func NewAdmission(concurrencySize, waitSize int) *Admission {
	return &Admission{
		running:         make(map[string]struct{}),
		waitSize:        waitSize,
		concurrencySize: concurrencySize,
	}
}

// Admit implements task.Admission.
func (a *Admission) Admit(_ context.Context, d task.Dispatch) (task.Placement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.waiting) == 0 && len(a.running) < a.concurrencySize {
		a.running[d.TaskID] = struct{}{}
		return task.PlacedRunning, nil
	}
	if len(a.waiting) >= a.waitSize {
		return task.PlacedWaiting, task.ErrQueueFull
	}
	a.waiting = append(a.waiting, d)
	return task.PlacedWaiting, nil
}

// Claim implements task.Admission.
func (a *Admission) Claim(_ context.Context) (*task.Dispatch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.waiting) == 0 || len(a.running) >= a.concurrencySize {
		return nil, nil
	}
	d := a.waiting[0]
	a.waiting = a.waiting[1:]
	a.running[d.TaskID] = struct{}{}
	return &d, nil
}

// Release implements task.Admission.
func (a *Admission) Release(_ context.Context, taskID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.running, taskID)
	return nil
}

// IsRunning implements task.Admission.
func (a *Admission) IsRunning(_ context.Context, taskID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.running[taskID]
	return ok, nil
}

// Running implements task.Admission.
func (a *Admission) Running(_ context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.running))
	for id := range a.running {
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats implements task.Admission.
func (a *Admission) Stats(_ context.Context) (task.Stats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return task.Stats{
		Waiting:         int64(len(a.waiting)),
		Running:         int64(len(a.running)),
		WaitSize:        a.waitSize,
		ConcurrencySize: a.concurrencySize,
	}, nil
}
