package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/mjqueue/internal/config"
	"github.com/phrazzld/mjqueue/internal/events"
	"github.com/phrazzld/mjqueue/internal/notify"
	"github.com/phrazzld/mjqueue/internal/platform/asynqx"
	"github.com/phrazzld/mjqueue/internal/platform/gateway"
	"github.com/phrazzld/mjqueue/internal/platform/gemini"
	"github.com/phrazzld/mjqueue/internal/platform/memory"
	mjredis "github.com/phrazzld/mjqueue/internal/platform/redis"
	"github.com/phrazzld/mjqueue/internal/platform/relay"
	"github.com/phrazzld/mjqueue/internal/platform/sqlstore"
	"github.com/phrazzld/mjqueue/internal/service"
	"github.com/phrazzld/mjqueue/internal/store"
	"github.com/phrazzld/mjqueue/internal/task"
)

// application holds the wired components and the resources they own.
type application struct {
	config *config.Config
	logger *slog.Logger

	redis *goredis.Client
	db    *sql.DB

	taskStore store.TaskStore
	queue     *task.Queue
	notifier  *notify.WebhookNotifier
	emitter   *events.Router
	trigger   *service.TriggerService
	sweeper   *task.Sweeper
	gateway   *gateway.Listener

	launcher  *asynqx.Launcher
	processor *asynqx.Processor
}

// newApplication builds every component from configuration. Resources opened
// before a failure are released again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}
	if err := app.build(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	logger.Info("application initialized")
	return app, nil
}

func (app *application) build(ctx context.Context) error {
	cfg, logger := app.config, app.logger

	var err error

	app.taskStore, err = app.openStore(ctx)
	if err != nil {
		return err
	}

	admission, err := app.openAdmission(ctx)
	if err != nil {
		return err
	}

	app.notifier, err = notify.New(notify.Config{
		MaxWorkers: cfg.Notify.MaxWorkers,
		Timeout:    cfg.Notify.Timeout(),
	}, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	app.queue = task.NewQueue(app.taskStore, admission, app.submitter(), app.notifier, logger)

	if cfg.Queue.Launcher == "asynq" {
		if err := app.setupAsynq(); err != nil {
			return err
		}
	}

	app.emitter = events.NewRouter(logger)
	app.emitter.Subscribe(task.NewListener(app.queue, logger))

	translator, err := app.translator(ctx)
	if err != nil {
		return err
	}
	app.trigger = service.NewTriggerService(app.queue, translator, service.Config{
		DefaultHook: cfg.Notify.DefaultHook,
		BannedWords: cfg.Trigger.BannedWords,
	}, logger)

	app.sweeper = task.NewSweeper(app.queue, app.taskStore, task.SweeperConfig{
		Schedule:     cfg.Queue.SweepSchedule,
		StuckTaskAge: cfg.Queue.StuckTaskAge(),
	}, logger)

	if cfg.Gateway.URL != "" {
		app.gateway = gateway.New(gateway.Config{
			URL:   cfg.Gateway.URL,
			Token: cfg.Gateway.Token,
		}, app.emitter, logger)
	} else {
		logger.Warn("gateway.url not set, chat events are accepted only through POST /api/v1/events")
	}

	return nil
}

func (app *application) openStore(ctx context.Context) (store.TaskStore, error) {
	cfg := app.config.Store
	switch cfg.Backend {
	case "memory":
		return memory.NewTaskStore(cfg.TTL()), nil
	case "redis":
		client, err := app.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return mjredis.NewTaskStore(client, cfg.TTL()), nil
	case "postgres", "sqlite":
		dialect := sqlstore.Dialect(cfg.Backend)
		db, err := sqlstore.Open(ctx, dialect, cfg.DatabaseURL, app.logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		if err := sqlstore.Migrate(db, dialect, app.logger); err != nil {
			return nil, err
		}
		return sqlstore.NewTaskStore(db, dialect, cfg.TTL()), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

// openAdmission shares the queue through Redis whenever the task store is
// itself shared between processes.
func (app *application) openAdmission(ctx context.Context) (task.Admission, error) {
	q := app.config.Queue
	switch app.config.Store.Backend {
	case "redis", "postgres":
		client, err := app.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return mjredis.NewAdmission(client, app.config.Redis.KeyPrefix, q.ConcurrencySize, q.WaitSize), nil
	default:
		return memory.NewAdmission(q.ConcurrencySize, q.WaitSize), nil
	}
}

func (app *application) redisClient(ctx context.Context) (*goredis.Client, error) {
	if app.redis != nil {
		return app.redis, nil
	}
	client, err := mjredis.Connect(ctx, app.config.Redis.URL, app.logger)
	if err != nil {
		return nil, err
	}
	app.redis = client
	return client, nil
}

func (app *application) submitter() task.Submitter {
	cfg := app.config.Relay
	if cfg.URL == "" {
		app.logger.Warn("relay.url not set, submissions are accepted but never sent")
		return task.NewMockSubmitter()
	}
	return relay.New(relay.Config{
		URL:           cfg.URL,
		Token:         cfg.Token,
		RatePerSecond: cfg.RatePerSecond,
	}, app.logger)
}

func (app *application) translator(ctx context.Context) (service.Translator, error) {
	if app.config.LLM.GeminiAPIKey == "" {
		app.logger.Info("llm.gemini_api_key not set, prompts are submitted untranslated")
		return gemini.Passthrough{}, nil
	}
	t, err := gemini.NewTranslator(ctx, app.config.LLM, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}
	return t, nil
}

// setupAsynq routes dispatches through asynq. The processor runs in this
// process too; further worker processes may share the same Redis.
func (app *application) setupAsynq() error {
	opt, err := asynq.ParseRedisURI(app.config.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url for asynq: %w", err)
	}
	app.launcher = asynqx.NewLauncher(opt, "")
	app.processor = asynqx.NewProcessor(opt, app.queue, asynqx.ProcessorConfig{
		Concurrency: app.config.Queue.ConcurrencySize,
	}, app.logger)
	app.queue.SetLauncher(app.launcher)
	return nil
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.processor != nil {
		app.processor.Shutdown()
	}
	if app.queue != nil {
		app.queue.Stop()
	}
	if app.launcher != nil {
		if err := app.launcher.Close(); err != nil {
			app.logger.Error("failed to close asynq client", "error", err)
		}
	}
	if app.notifier != nil {
		app.notifier.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
