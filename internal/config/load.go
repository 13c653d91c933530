package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MJQ_QUEUE_WAIT_SIZE.
const EnvPrefix = "MJQ"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// setDefaults registers every key so that environment overrides are picked up
// by Unmarshal even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.ttl_hours", 168)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key_prefix", "{mj-queue}:")

	v.SetDefault("queue.concurrency_size", 3)
	v.SetDefault("queue.wait_size", 10)
	v.SetDefault("queue.stuck_task_age_minutes", 30)
	v.SetDefault("queue.sweep_schedule", "@every 1m")
	v.SetDefault("queue.launcher", "inline")

	v.SetDefault("notify.max_workers", 5)
	v.SetDefault("notify.timeout_seconds", 10)
	v.SetDefault("notify.default_hook", "")

	v.SetDefault("relay.url", "")
	v.SetDefault("relay.token", "")
	v.SetDefault("relay.rate_per_second", 1.0)

	v.SetDefault("gateway.url", "")
	v.SetDefault("gateway.token", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")

	v.SetDefault("trigger.banned_words", []string{})
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch cfg.Store.Backend {
	case "postgres", "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: store.database_url is required for the %s backend",
				ErrInvalidConfig, cfg.Store.Backend)
		}
	case "redis":
		if cfg.Redis.URL == "" {
			return fmt.Errorf("%w: redis.url is required for the redis backend", ErrInvalidConfig)
		}
	}

	if cfg.Queue.Launcher == "asynq" && cfg.Redis.URL == "" {
		return fmt.Errorf("%w: redis.url is required for the asynq launcher", ErrInvalidConfig)
	}
	return nil
}
