package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// TaskStore keeps serialized tasks in a map with a per-entry expiry.
// Tasks are stored as JSON so callers never share a *domain.Task.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

var (
	_ store.TaskStore = (*TaskStore)(nil)
	_ store.Purger    = (*TaskStore)(nil)
)

// NewTaskStore creates a TaskStore. A non-positive ttl uses store.DefaultTaskTTL.
func NewTaskStore(ttl time.Duration) *TaskStore {
	if ttl <= 0 {
		ttl = store.DefaultTaskTTL
	}
	return &TaskStore{
		tasks: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Save implements store.TaskStore.
func (s *TaskStore) Save(_ context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return store.ErrInvalidEntity
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = entry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	e, ok := s.tasks[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.expiresAt) {
		return nil, store.ErrTaskNotFound
	}

	var task domain.Task
	if err := json.Unmarshal(e.data, &task); err != nil {
		return nil, store.NewStoreError("task", "get", "corrupt task entry", err)
	}
	return &task, nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

// PurgeExpired implements store.Purger.
func (s *TaskStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.tasks {
		if !now.Before(e.expiresAt) {
			delete(s.tasks, id)
			n++
		}
	}
	return n, nil
}
