package config

import (
	"time"

	"vesta-hq/vesta/pkg/resilience/breaker"
	"vesta-hq/vesta/pkg/resilience/ratelimit"
)

// Config is the root configuration structure for Vesta. It contains all
// configuration sections for the assistant loop, content providers, the
// resilience control plane, storage, scheduling, telemetry, and the ops
// HTTP server.
type Config struct {
	// Assistant contains settings for the assistant itself.
	Assistant AssistantConfig `yaml:"assistant"`

	// Providers contains configuration for all content provider
	// integrations. Keys are provider names (e.g., "mlx", "image", "search").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Resilience contains the default circuit breaker and rate limiter
	// configurations applied to dependencies without explicit overrides.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Store contains configuration for the chat message store.
	Store StoreConfig `yaml:"store"`

	// Scheduler contains the scheduled automation jobs.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Telemetry contains observability configuration: logging, metrics,
	// and periodic health polling.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server contains configuration for the ops HTTP server serving the
	// health and metrics endpoints.
	Server ServerConfig `yaml:"server"`
}

// AssistantConfig contains settings for the assistant loop.
type AssistantConfig struct {
	// Name identifies this assistant instance in logs and reports.
	// Default: "vesta"
	Name string `yaml:"name"`

	// PollInterval is how often the chat application is polled for new
	// messages. Default: 2s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ProviderConfig contains configuration for one content provider.
type ProviderConfig struct {
	// Type selects the provider kind: "llm", "image", or "search".
	Type string `yaml:"type"`

	// BaseURL is the provider's endpoint base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests, when the provider requires it.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single HTTP request to the provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit overrides the default rate limiter for this provider.
	RateLimit *ratelimit.Config `yaml:"rate_limit"`

	// Breaker overrides the default circuit breaker for this provider.
	Breaker *breaker.Config `yaml:"breaker"`
}

// ResilienceConfig contains the control-plane defaults.
type ResilienceConfig struct {
	// Breaker is the default circuit breaker configuration.
	Breaker breaker.Config `yaml:"breaker"`

	// RateLimit is the default rate limiter configuration.
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// StoreConfig contains configuration for the message store.
type StoreConfig struct {
	// Path is the SQLite database file path. Default: "vesta.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a locked database is retried before a
	// query fails. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SchedulerConfig contains the scheduled automation jobs.
type SchedulerConfig struct {
	// Enabled turns the scheduler on. Default: true when jobs exist.
	Enabled bool `yaml:"enabled"`

	// Jobs are the scheduled automation entries.
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig describes one scheduled automation job.
type JobConfig struct {
	// Name identifies the job in logs.
	Name string `yaml:"name"`

	// Schedule is a standard 5-field cron expression (e.g., "0 8 * * *").
	Schedule string `yaml:"schedule"`

	// Prompt is the prompt template submitted to the LLM when the job fires.
	Prompt string `yaml:"prompt"`

	// Recipient is where the result is delivered.
	Recipient string `yaml:"recipient"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus exporter.
	Metrics MetricsConfig `yaml:"metrics"`

	// HealthInterval is the periodic health polling interval.
	// Default: 30s
	HealthInterval time.Duration `yaml:"health_interval"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text"). Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	// Enabled turns metric recording on. Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name. Default: "vesta"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets overrides the latency histogram buckets.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// ServerConfig contains configuration for the ops HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}
