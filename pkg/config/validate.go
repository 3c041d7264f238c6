package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"vesta-hq/vesta/pkg/resilience/ratelimit"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for errors that would make the
// assistant misbehave at runtime. It is called by LoadConfig after
// defaults are applied.
func Validate(cfg *Config) error {
	if err := validateProviders(cfg); err != nil {
		return err
	}
	if err := validateResilience(cfg); err != nil {
		return err
	}
	if err := validateScheduler(cfg); err != nil {
		return err
	}
	if err := validateServer(cfg); err != nil {
		return err
	}
	return validateLogging(cfg)
}

func validateProviders(cfg *Config) error {
	for name, p := range cfg.Providers {
		switch p.Type {
		case "llm", "image", "search":
		case "":
			return fmt.Errorf("provider %q: type is required", name)
		default:
			return fmt.Errorf("provider %q: unknown type %q (expected llm, image, or search)", name, p.Type)
		}

		if p.BaseURL == "" {
			return fmt.Errorf("provider %q: base_url is required", name)
		}
		u, err := url.Parse(p.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("provider %q: invalid base_url %q", name, p.BaseURL)
		}

		if p.RateLimit != nil {
			if err := validateLimiterConfig(fmt.Sprintf("provider %q", name), p.RateLimit); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateResilience(cfg *Config) error {
	b := cfg.Resilience.Breaker
	if b.FailureThreshold < 0 || b.SuccessThreshold < 0 {
		return fmt.Errorf("resilience.breaker: thresholds must not be negative")
	}
	if cfg.Resilience.RateLimit.Strategy != "" {
		return validateLimiterConfig("resilience.rate_limit", &cfg.Resilience.RateLimit)
	}
	return nil
}

func validateLimiterConfig(where string, c *ratelimit.Config) error {
	switch c.Strategy {
	case "", ratelimit.StrategyTokenBucket, ratelimit.StrategySlidingWindow:
	default:
		return fmt.Errorf("%s: unknown rate limit strategy %q", where, c.Strategy)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("%s: max_requests must not be negative", where)
	}
	return nil
}

func validateScheduler(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Scheduler.Jobs))
	for i, job := range cfg.Scheduler.Jobs {
		if job.Name == "" {
			return fmt.Errorf("scheduler.jobs[%d]: name is required", i)
		}
		if seen[job.Name] {
			return fmt.Errorf("scheduler.jobs[%d]: duplicate job name %q", i, job.Name)
		}
		seen[job.Name] = true

		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return fmt.Errorf("scheduler job %q: invalid cron schedule %q: %w",
				job.Name, job.Schedule, err)
		}
		if strings.TrimSpace(job.Prompt) == "" {
			return fmt.Errorf("scheduler job %q: prompt is required", job.Name)
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		return fmt.Errorf("server: invalid listen_address %q: %w", cfg.Server.ListenAddress, err)
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch strings.ToLower(cfg.Telemetry.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("telemetry.logging: unknown level %q", cfg.Telemetry.Logging.Level)
	}
	switch strings.ToLower(cfg.Telemetry.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging: unknown format %q", cfg.Telemetry.Logging.Format)
	}
	return nil
}
