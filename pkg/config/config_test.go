package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vesta-hq/vesta/pkg/resilience/ratelimit"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vesta.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const sampleConfig = `
assistant:
  name: "test-assistant"
  poll_interval: "5s"

providers:
  mlx:
    type: "llm"
    base_url: "http://localhost:8080"
    timeout: "90s"
    rate_limit:
      strategy: "token-bucket"
      max_requests: 30
      window: "1m"
    breaker:
      failure_threshold: 3
      reset_timeout: "15s"
  search:
    type: "search"
    base_url: "https://api.example.com"
    api_key: "file-key"

resilience:
  breaker:
    failure_threshold: 5
    success_threshold: 2
  rate_limit:
    strategy: "sliding-window"
    max_requests: 100
    window: "1m"

store:
  path: "/tmp/test.db"

scheduler:
  enabled: true
  jobs:
    - name: "morning-briefing"
      schedule: "0 8 * * *"
      prompt: "Summarize my day"
      recipient: "me"

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: true
  health_interval: "10s"

server:
  listen_address: "127.0.0.1:9191"
  read_timeout: "15s"
`

// ============================================================
// Loading
// ============================================================

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Assistant.Name != "test-assistant" {
		t.Errorf("expected assistant name test-assistant, got %q", cfg.Assistant.Name)
	}
	if cfg.Assistant.PollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", cfg.Assistant.PollInterval)
	}

	mlx, ok := cfg.Providers["mlx"]
	if !ok {
		t.Fatal("expected mlx provider")
	}
	if mlx.Timeout != 90*time.Second {
		t.Errorf("expected mlx timeout 90s, got %v", mlx.Timeout)
	}
	if mlx.RateLimit == nil || mlx.RateLimit.MaxRequests != 30 {
		t.Errorf("expected mlx rate limit 30 requests, got %+v", mlx.RateLimit)
	}
	if mlx.Breaker == nil || mlx.Breaker.FailureThreshold != 3 {
		t.Errorf("expected mlx failure threshold 3, got %+v", mlx.Breaker)
	}

	if cfg.Resilience.RateLimit.Strategy != ratelimit.StrategySlidingWindow {
		t.Errorf("expected sliding-window strategy, got %q", cfg.Resilience.RateLimit.Strategy)
	}

	if len(cfg.Scheduler.Jobs) != 1 || cfg.Scheduler.Jobs[0].Schedule != "0 8 * * *" {
		t.Errorf("unexpected scheduler jobs: %+v", cfg.Scheduler.Jobs)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:9191" {
		t.Errorf("expected listen address override, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected read timeout 15s, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "assistant: [not: closed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "assistant:\n  name: \"minimal\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Assistant.PollInterval != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v", cfg.Assistant.PollInterval)
	}
	if cfg.Store.Path != DefaultStorePath {
		t.Errorf("expected default store path, got %q", cfg.Store.Path)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("expected default logging config, got %+v", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.HealthInterval != DefaultHealthInterval {
		t.Errorf("expected default health interval, got %v", cfg.Telemetry.HealthInterval)
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Assistant.Name != DefaultAssistantName {
		t.Errorf("expected default name, got %q", cfg.Assistant.Name)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := NewDefault()
	cfg.Assistant.Name = "round-trip"
	path := filepath.Join(t.TempDir(), "out.yaml")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Assistant.Name != "round-trip" {
		t.Errorf("expected round-trip name, got %q", loaded.Assistant.Name)
	}
}

// ============================================================
// Validation
// ============================================================

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name: "provider missing type",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"bad": {BaseURL: "http://localhost:8080"},
				}
			},
			wantSub: "type is required",
		},
		{
			name: "provider unknown type",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"bad": {Type: "ftp", BaseURL: "http://localhost:8080"},
				}
			},
			wantSub: "unknown type",
		},
		{
			name: "provider missing base url",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"bad": {Type: "llm"},
				}
			},
			wantSub: "base_url is required",
		},
		{
			name: "provider invalid base url",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"bad": {Type: "llm", BaseURL: "not a url"},
				}
			},
			wantSub: "invalid base_url",
		},
		{
			name: "provider bad limiter strategy",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{
					"bad": {
						Type:      "llm",
						BaseURL:   "http://localhost:8080",
						RateLimit: &ratelimit.Config{Strategy: "leaky-bucket"},
					},
				}
			},
			wantSub: "unknown rate limit strategy",
		},
		{
			name: "negative breaker threshold",
			mutate: func(c *Config) {
				c.Resilience.Breaker.FailureThreshold = -1
			},
			wantSub: "must not be negative",
		},
		{
			name: "scheduler job without name",
			mutate: func(c *Config) {
				c.Scheduler.Jobs = []JobConfig{{Schedule: "* * * * *", Prompt: "hi"}}
			},
			wantSub: "name is required",
		},
		{
			name: "scheduler duplicate job names",
			mutate: func(c *Config) {
				c.Scheduler.Jobs = []JobConfig{
					{Name: "dup", Schedule: "* * * * *", Prompt: "hi"},
					{Name: "dup", Schedule: "* * * * *", Prompt: "hi"},
				}
			},
			wantSub: "duplicate job name",
		},
		{
			name: "scheduler invalid cron",
			mutate: func(c *Config) {
				c.Scheduler.Jobs = []JobConfig{{Name: "bad", Schedule: "not-cron", Prompt: "hi"}}
			},
			wantSub: "invalid cron schedule",
		},
		{
			name: "scheduler job without prompt",
			mutate: func(c *Config) {
				c.Scheduler.Jobs = []JobConfig{{Name: "bad", Schedule: "* * * * *"}}
			},
			wantSub: "prompt is required",
		},
		{
			name: "invalid listen address",
			mutate: func(c *Config) {
				c.Server.ListenAddress = "no-port"
			},
			wantSub: "invalid listen_address",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Telemetry.Logging.Level = "verbose"
			},
			wantSub: "unknown level",
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Telemetry.Logging.Format = "xml"
			},
			wantSub: "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error containing %q, got %q", tt.wantSub, err.Error())
			}
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := NewDefault()
	cfg.Providers = map[string]ProviderConfig{
		"mlx": {Type: "llm", BaseURL: "http://localhost:8080"},
	}
	cfg.Scheduler.Jobs = []JobConfig{
		{Name: "briefing", Schedule: "30 7 * * 1-5", Prompt: "Summarize my calendar"},
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

// ============================================================
// Environment overrides
// ============================================================

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	t.Setenv("VESTA_ASSISTANT_NAME", "env-assistant")
	t.Setenv("VESTA_ASSISTANT_POLL_INTERVAL", "9s")
	t.Setenv("VESTA_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("VESTA_TELEMETRY_LOG_LEVEL", "warn")
	t.Setenv("VESTA_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("VESTA_PROVIDER_SEARCH_API_KEY", "env-key")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Assistant.Name != "env-assistant" {
		t.Errorf("expected env name, got %q", cfg.Assistant.Name)
	}
	if cfg.Assistant.PollInterval != 9*time.Second {
		t.Errorf("expected env poll interval, got %v", cfg.Assistant.PollInterval)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("expected env listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected env log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled via env")
	}
	if cfg.Providers["search"].APIKey != "env-key" {
		t.Errorf("expected env api key, got %q", cfg.Providers["search"].APIKey)
	}
	// Untouched fields keep their file values.
	if cfg.Providers["mlx"].Timeout != 90*time.Second {
		t.Errorf("expected file timeout preserved, got %v", cfg.Providers["mlx"].Timeout)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	t.Setenv("VESTA_TELEMETRY_LOG_LEVEL", "shouting")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error for bad env override")
	}
}

// ============================================================
// Hot reload
// ============================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Watch(ctx, func(cfg *Config) {
			reloaded <- cfg
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := strings.Replace(sampleConfig, "test-assistant", "reloaded-assistant", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Assistant.Name != "reloaded-assistant" {
			t.Errorf("expected reloaded name, got %q", cfg.Assistant.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := <-watchDone; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestWatcher_InvalidEditKeepsRunning(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg }) }()

	time.Sleep(100 * time.Millisecond)

	// A broken edit must not produce a reload.
	if err := os.WriteFile(path, []byte("providers: [broken"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("broken config should not trigger reload")
	case <-time.After(400 * time.Millisecond):
	}

	// A subsequent good edit still reloads.
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload after recovery")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
