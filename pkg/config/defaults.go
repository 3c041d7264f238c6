package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultAssistantName  = "vesta"
	DefaultPollInterval   = 2 * time.Second
	DefaultProviderTime   = 60 * time.Second
	DefaultStorePath      = "vesta.db"
	DefaultBusyTimeout    = 5 * time.Second
	DefaultHealthInterval = 30 * time.Second
	DefaultListenAddress  = "127.0.0.1:9090"
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultShutdown       = 10 * time.Second
)

// ApplyDefaults fills zero values in cfg with defaults. It is called by
// LoadConfig after parsing and can be used directly on hand-built configs.
func ApplyDefaults(cfg *Config) {
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = DefaultAssistantName
	}
	if cfg.Assistant.PollInterval <= 0 {
		cfg.Assistant.PollInterval = DefaultPollInterval
	}

	for name, p := range cfg.Providers {
		if p.Timeout <= 0 {
			p.Timeout = DefaultProviderTime
		}
		cfg.Providers[name] = p
	}

	// Breaker and limiter defaults are owned by their packages; the
	// managers fill zero values on construction.

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "vesta"
	}
	if cfg.Telemetry.HealthInterval <= 0 {
		cfg.Telemetry.HealthInterval = DefaultHealthInterval
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdown
	}
}

// NewDefault returns a configuration with every default applied and
// metrics enabled. Useful for tests and for running without a config file.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
