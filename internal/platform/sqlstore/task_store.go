package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/platform/logger"
	"github.com/phrazzld/mjqueue/internal/store"
)

// TaskStore persists each task as a JSON document row with an expiry.
type TaskStore struct {
	db      *sql.DB
	dialect Dialect
	ttl     time.Duration
	now     func() time.Time

	upsertSQL string
	getSQL    string
	deleteSQL string
	purgeSQL  string
}

var (
	_ store.TaskStore = (*TaskStore)(nil)
	_ store.Purger    = (*TaskStore)(nil)
)

// NewTaskStore creates a TaskStore on a migrated database. A non-positive ttl
// uses store.DefaultTaskTTL.
func NewTaskStore(db *sql.DB, dialect Dialect, ttl time.Duration) *TaskStore {
	if ttl <= 0 {
		ttl = store.DefaultTaskTTL
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		ttl:     ttl,
		now:     time.Now,
		upsertSQL: rebind(dialect, `
			INSERT INTO mj_tasks (id, action, status, data, expires_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				action = excluded.action,
				status = excluded.status,
				data = excluded.data,
				expires_at = excluded.expires_at,
				updated_at = excluded.updated_at`),
		getSQL:    rebind(dialect, `SELECT data FROM mj_tasks WHERE id = ? AND expires_at > ?`),
		deleteSQL: rebind(dialect, `DELETE FROM mj_tasks WHERE id = ?`),
		purgeSQL:  rebind(dialect, `DELETE FROM mj_tasks WHERE expires_at <= ?`),
	}
}

// Save implements store.TaskStore.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if task == nil || task.ID == "" {
		return store.ErrInvalidEntity
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	now := s.now()
	_, err = s.db.ExecContext(ctx, s.upsertSQL,
		task.ID,
		string(task.Action),
		string(task.Status),
		string(data),
		now.Add(s.ttl).UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		return store.NewStoreError("task", "save", "upsert failed", MapError(err))
	}
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.getSQL, id, s.now().UnixMilli()).Scan(&data)
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContext(ctx).Error("failed to load task", "task_id", id, "error", err)
		return nil, store.NewStoreError("task", "get", "query failed", mapped)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, store.NewStoreError("task", "get", "corrupt task entry", err)
	}
	return &task, nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteSQL, id); err != nil {
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}
	return nil
}

// PurgeExpired implements store.Purger.
func (s *TaskStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.purgeSQL, s.now().UnixMilli())
	if err != nil {
		return 0, store.NewStoreError("task", "purge", "delete failed", MapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
