package asynqx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/phrazzld/mjqueue/internal/task"
)

// ProcessorConfig holds configuration for the dispatch processor.
type ProcessorConfig struct {
	Concurrency int
	Queue       string
}

// Processor runs dispatch tasks taken from asynq through an executor.
type Processor struct {
	server   *asynq.Server
	executor task.Executor
	logger   *slog.Logger
}

// NewProcessor creates a Processor. Zero values fall back to a concurrency of
// 10 and DefaultQueue.
func NewProcessor(redisOpt asynq.RedisConnOpt, executor task.Executor, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	con := cfg.Concurrency
	if con <= 0 {
		con = 10
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	logger = logger.With("component", "dispatch_processor")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: con,
		Queues:      map[string]int{queue: 1},
		Logger:      &slogAdapter{logger: logger},
	})
	return &Processor{server: server, executor: executor, logger: logger}
}

// lifecycleMiddleware logs the start and outcome of every task.
func (p *Processor) lifecycleMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		id, _ := asynq.GetTaskID(ctx)
		start := time.Now()
		p.logger.Debug("dispatch started", "asynq_id", id, "type", t.Type())

		err := next.ProcessTask(ctx, t)
		if err != nil {
			p.logger.Warn("dispatch failed",
				"asynq_id", id,
				"duration", time.Since(start),
				"error", err)
			return err
		}
		p.logger.Debug("dispatch completed", "asynq_id", id, "duration", time.Since(start))
		return nil
	})
}

func (p *Processor) handleDispatch(ctx context.Context, t *asynq.Task) error {
	var d task.Dispatch
	if err := json.Unmarshal(t.Payload(), &d); err != nil {
		return fmt.Errorf("%w: malformed dispatch: %v", asynq.SkipRetry, err)
	}
	if err := p.executor.Execute(ctx, d); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}

// Handler returns the processor's handler, wrapped with its middleware.
func (p *Processor) Handler() asynq.Handler {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDispatch, p.handleDispatch)
	return p.lifecycleMiddleware(mux)
}

// Start runs the asynq server without blocking.
func (p *Processor) Start() error {
	return p.server.Start(p.Handler())
}

// Shutdown stops pulling tasks and waits for active ones to finish.
func (p *Processor) Shutdown() { p.server.Shutdown() }

// slogAdapter implements asynq.Logger on top of slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *slogAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a *slogAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *slogAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }

// Fatal logs at error level. asynq only calls it on unrecoverable startup
// failures, which Start also reports as an error.
func (a *slogAdapter) Fatal(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
