package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vesta-hq/vesta/pkg/assistant/providers"
	"vesta-hq/vesta/pkg/assistant/scheduler"
	"vesta-hq/vesta/pkg/assistant/store"
	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/server"
	"vesta-hq/vesta/pkg/telemetry/logging"

	"github.com/spf13/cobra"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watchConfig   bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the assistant",
	Long: `Start the assistant with the specified configuration.

The assistant wires a circuit breaker and rate limiter around every
configured provider, runs scheduled automation jobs, polls dependency
health, and serves health and metrics endpoints on the ops address.

Examples:
  # Start with default config
  vesta run

  # Start with custom config
  vesta run --config /etc/vesta/vesta.yaml

  # Override the ops listen address
  vesta run --listen 0.0.0.0:9090

  # Validate config without starting
  vesta run --dry-run`,
	RunE: runAssistant,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override ops listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload config file on change")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runAssistant(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg.Scheduler, scheduledJobFunc(a), a.logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	a.checker.StartPeriodicChecks(ctx, cfg.Telemetry.HealthInterval)

	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go watcher.Watch(ctx, func(newCfg *config.Config) {
			// Most sections need a restart to take effect; log level
			// applies immediately.
			applyReload(a, newCfg)
		})
		defer watcher.Stop()
	}

	a.logger.Info("assistant starting",
		"name", cfg.Assistant.Name,
		"providers", len(cfg.Providers),
		"jobs", len(cfg.Scheduler.Jobs),
	)

	ops := server.New(cfg.Server, a.checker, a.metrics, a.logger)
	return ops.Start(ctx)
}

// scheduledJobFunc builds the scheduler's job executor: submit the
// job's prompt to the inference server and record both turns in the
// conversation history.
func scheduledJobFunc(a *app) scheduler.JobFunc {
	return func(ctx context.Context, job config.JobConfig) error {
		if a.llm == nil {
			return fmt.Errorf("no llm provider configured")
		}

		conversation := "job:" + job.Name
		if job.Recipient != "" {
			conversation = job.Recipient
		}

		if err := a.store.Save(ctx, &store.Message{
			Conversation: conversation,
			Role:         "user",
			Content:      job.Prompt,
		}); err != nil {
			return err
		}

		resp, err := a.llm.Generate(ctx, &providers.GenerateRequest{
			Messages: []providers.Message{{Role: "user", Content: job.Prompt}},
		})
		if err != nil {
			return err
		}

		return a.store.Save(ctx, &store.Message{
			Conversation: conversation,
			Role:         "assistant",
			Content:      resp.Response,
			TokensUsed:   resp.TokensGenerated,
		})
	}
}

// applyReload applies the hot-reloadable parts of a new configuration.
// Only the default log level and format can change at runtime; provider
// and server sections take effect on restart.
func applyReload(a *app, newCfg *config.Config) {
	if newCfg.Telemetry.Logging != a.cfg.Telemetry.Logging {
		if _, err := logging.Setup(logging.Config{
			Level:     newCfg.Telemetry.Logging.Level,
			Format:    newCfg.Telemetry.Logging.Format,
			AddSource: newCfg.Telemetry.Logging.AddSource,
			Writer:    os.Stdout,
		}); err != nil {
			a.logger.Error("failed to apply logging config", "error", err)
		} else {
			a.cfg.Telemetry.Logging = newCfg.Telemetry.Logging
			a.logger.Info("logging config applied",
				"level", newCfg.Telemetry.Logging.Level,
				"format", newCfg.Telemetry.Logging.Format,
			)
		}
	}
	a.logger.Info("config reloaded; other sections take effect on restart")
}
