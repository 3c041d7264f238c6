package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"vesta-hq/vesta/pkg/assistant/providers"
	"vesta-hq/vesta/pkg/assistant/store"
	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/resilience/breaker"
	"vesta-hq/vesta/pkg/resilience/ratelimit"
	"vesta-hq/vesta/pkg/telemetry/health"
	"vesta-hq/vesta/pkg/telemetry/logging"
	"vesta-hq/vesta/pkg/telemetry/metrics"
)

// app holds the wired application graph shared by the run and check
// commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	breakers *breaker.Manager
	limiters *ratelimit.Manager
	metrics  *metrics.Collector
	checker  *health.Checker
	store    *store.MessageStore

	llm    *providers.LLMClient
	image  *providers.ImageClient
	search *providers.SearchClient
}

// loadConfig loads the configured file, falling back to built-in
// defaults when the default config path does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && !rootCmd.PersistentFlags().Changed("config") {
			return config.NewDefault(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildApp wires breakers, limiters, metrics, the health checker, the
// message store, and the provider clients from configuration.
func buildApp(cfg *config.Config) (*app, error) {
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		breakers: breaker.NewManager(cfg.Resilience.Breaker),
		limiters: ratelimit.NewManager(cfg.Resilience.RateLimit),
	}

	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		a.breakers.Subscribe(a.metrics.ObserveBreakerEvent)
	}

	a.checker = health.New(a.breakers)
	a.checker.SetLogger(logger)
	if a.metrics != nil {
		a.checker.OnReport(a.metrics.RecordHealthReport)
	}

	a.store, err = store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	a.checker.Register("store", a.store.Probe(), health.WithCritical(true))

	if err := a.buildProviders(); err != nil {
		a.store.Close()
		return nil, err
	}

	return a, nil
}

// buildProviders creates a client per configured provider, each with its
// own named breaker and limiter, and registers its health probe. The
// inference server is critical; image and search degrade the assistant
// but do not take it down.
func (a *app) buildProviders() error {
	for name, pc := range a.cfg.Providers {
		opts := providers.Options{
			Logger:  a.logger,
			Metrics: a.recorder(),
		}
		if pc.Breaker != nil {
			opts.Breaker = a.breakers.GetWithConfig(name, *pc.Breaker)
		} else {
			opts.Breaker = a.breakers.Get(name)
		}
		if pc.RateLimit != nil {
			opts.Limiter = a.limiters.GetWithConfig(name, *pc.RateLimit)
		} else {
			opts.Limiter = a.limiters.Get(name)
		}

		switch pc.Type {
		case "llm":
			c := providers.NewLLMClient(name, pc, opts)
			a.checker.Register(name, c.Probe(), health.WithCritical(true))
			if a.llm == nil {
				a.llm = c
			}
		case "image":
			c := providers.NewImageClient(name, pc, opts)
			a.checker.Register(name, c.Probe(), health.WithCritical(false))
			if a.image == nil {
				a.image = c
			}
		case "search":
			c := providers.NewSearchClient(name, pc, opts)
			a.checker.Register(name, c.Probe(), health.WithCritical(false))
			if a.search == nil {
				a.search = c
			}
		default:
			return fmt.Errorf("provider %q: unknown type %q", name, pc.Type)
		}
	}
	return nil
}

// recorder returns the metrics collector as a provider Recorder, or nil
// when metrics are disabled.
func (a *app) recorder() providers.Recorder {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// Close releases the application's resources.
func (a *app) Close() {
	a.checker.Stop()
	if a.store != nil {
		a.store.Close()
	}
}
