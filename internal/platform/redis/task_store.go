package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
)

// TaskKeyPrefix prefixes every task key.
const TaskKeyPrefix = "mj-task:"

// TaskStore keeps each task as a JSON string with a TTL. Expiry is enforced
// by Redis.
type TaskStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore. A non-positive ttl uses store.DefaultTaskTTL.
func NewTaskStore(client goredis.UniversalClient, ttl time.Duration) *TaskStore {
	if ttl <= 0 {
		ttl = store.DefaultTaskTTL
	}
	return &TaskStore{client: client, ttl: ttl}
}

func taskKey(id string) string {
	return TaskKeyPrefix + id
}

// Save implements store.TaskStore.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return store.ErrInvalidEntity
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if err := s.client.Set(ctx, taskKey(task.ID), data, s.ttl).Err(); err != nil {
		return store.NewStoreError("task", "save", "redis SET failed", err)
	}
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("task", "get", "redis GET failed", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, store.NewStoreError("task", "get", "corrupt task entry", err)
	}
	return &task, nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, taskKey(id)).Err(); err != nil {
		return store.NewStoreError("task", "delete", "redis DEL failed", err)
	}
	return nil
}
