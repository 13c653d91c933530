package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
)

// reasonTimedOut is recorded on tasks reaped by the sweeper.
const reasonTimedOut = "timed out waiting for result"

// SweeperConfig holds configuration for the stuck task sweeper.
type SweeperConfig struct {
	// Schedule is a cron spec, e.g. "@every 1m".
	Schedule string

	// StuckTaskAge is how long a task may hold a running slot before it is failed.
	StuckTaskAge time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with reasonable defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Schedule:     "@every 1m",
		StuckTaskAge: 30 * time.Minute,
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Failed   int
	Released int
	Purged   int64
}

// Sweeper periodically frees running slots held by tasks that will never
// receive a terminal event: tasks running longer than StuckTaskAge are failed,
// and slots whose task expired from the store are released.
type Sweeper struct {
	queue  *Queue
	store  store.TaskStore
	config SweeperConfig
	cron   *cron.Cron
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper for q. taskStore is only used for purging when
// it implements store.Purger.
func NewSweeper(q *Queue, taskStore store.TaskStore, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Schedule == "" {
		config.Schedule = DefaultSweeperConfig().Schedule
	}
	if config.StuckTaskAge <= 0 {
		config.StuckTaskAge = DefaultSweeperConfig().StuckTaskAge
	}
	return &Sweeper{
		queue:  q,
		store:  taskStore,
		config: config,
		cron:   cron.New(),
		logger: logger.With("component", "task_sweeper"),
		now:    time.Now,
	}
}

// Start schedules the sweep. It returns an error for an invalid schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("sweeper started",
		"schedule", s.config.Schedule,
		"stuck_task_age", s.config.StuckTaskAge)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// Sweep runs one pass over the running set and refills freed slots.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	ids, err := s.queue.Running(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list running tasks: %w", err)
	}

	cutoff := s.now().Add(-s.config.StuckTaskAge).UnixMilli()
	for _, id := range ids {
		task, err := s.store.Get(ctx, id)
		switch {
		case store.IsNotFoundError(err):
			s.logger.Warn("releasing slot of expired task", "task_id", id)
			s.queue.release(ctx, id)
			res.Released++
		case err != nil:
			s.logger.Error("failed to load running task", "task_id", id, "error", err)
		case task.Status.Terminal():
			s.queue.release(ctx, id)
			res.Released++
		case s.stuck(task, cutoff):
			if err := s.queue.Fail(ctx, id, reasonTimedOut); err != nil {
				s.logger.Error("failed to fail stuck task", "task_id", id, "error", err)
				continue
			}
			s.logger.Warn("failed stuck task", "task_id", id, "start_time", task.StartTime)
			res.Failed++
		}
	}

	if p, ok := s.store.(store.Purger); ok {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			s.logger.Error("failed to purge expired tasks", "error", err)
		}
		res.Purged = n
	}

	s.queue.Dispatch(ctx)

	if res.Failed > 0 || res.Released > 0 || res.Purged > 0 {
		s.logger.Info("sweep completed",
			"failed", res.Failed,
			"released", res.Released,
			"purged", res.Purged)
	}
	return res, nil
}

func (s *Sweeper) stuck(task *domain.Task, cutoff int64) bool {
	started := task.StartTime
	if started == 0 {
		started = task.SubmitTime
	}
	return started < cutoff
}
