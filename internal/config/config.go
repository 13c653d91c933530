package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Store   StoreConfig   `mapstructure:"store" validate:"required"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Queue   QueueConfig   `mapstructure:"queue" validate:"required"`
	Notify  NotifyConfig  `mapstructure:"notify" validate:"required"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Auth    AuthConfig    `mapstructure:"auth"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Trigger TriggerConfig `mapstructure:"trigger"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig selects and configures the task store.
type StoreConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=redis postgres sqlite memory"`
	DatabaseURL string `mapstructure:"database_url"`
	TTLHours    int    `mapstructure:"ttl_hours" validate:"gt=0"`
}

// TTL returns the task retention window.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// RedisConfig contains the shared Redis connection used by the redis store,
// the admission index and the asynq launcher.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// QueueConfig bounds the admission queue and running set.
type QueueConfig struct {
	ConcurrencySize     int    `mapstructure:"concurrency_size" validate:"gt=0"`
	WaitSize            int    `mapstructure:"wait_size" validate:"gte=0"`
	StuckTaskAgeMinutes int    `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
	SweepSchedule       string `mapstructure:"sweep_schedule" validate:"required"`
	Launcher            string `mapstructure:"launcher" validate:"required,oneof=inline asynq"`
}

// StuckTaskAge returns how long a task may hold a running slot.
func (q QueueConfig) StuckTaskAge() time.Duration {
	return time.Duration(q.StuckTaskAgeMinutes) * time.Minute
}

// NotifyConfig configures webhook delivery.
type NotifyConfig struct {
	MaxWorkers     int    `mapstructure:"max_workers" validate:"gt=0"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	DefaultHook    string `mapstructure:"default_hook" validate:"omitempty,url"`
}

// Timeout returns the per-delivery timeout.
func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// RelayConfig points at the chat gateway sidecar that performs submissions.
type RelayConfig struct {
	URL           string  `mapstructure:"url" validate:"omitempty,url"`
	Token         string  `mapstructure:"token"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
}

// GatewayConfig points at the sidecar's event stream.
type GatewayConfig struct {
	URL   string `mapstructure:"url" validate:"omitempty,url"`
	Token string `mapstructure:"token"`
}

// AuthConfig contains authentication settings. Auth is disabled when
// JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// LLMConfig contains prompt translation settings. Translation is disabled
// when GeminiAPIKey is empty.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// TriggerConfig holds submission-time rules applied to new tasks.
type TriggerConfig struct {
	BannedWords []string `mapstructure:"banned_words"`
}
