package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vesta-hq/vesta/pkg/telemetry/health"

	"github.com/spf13/cobra"
)

var checkFlags struct {
	timeout time.Duration
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run all health checks once and print the report",
	Long: `Run every configured health probe once, print the aggregated
report as JSON, and exit non-zero when the overall status is unhealthy.

Examples:
  # Check with default config
  vesta check

  # Check with a shorter probe budget
  vesta check --timeout 3s`,
	RunE:         runCheck,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 10*time.Second, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), checkFlags.timeout)
	defer cancel()

	report := a.checker.CheckAll(ctx)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(string(out))

	if report.Status == health.StatusUnhealthy {
		// Returning the error lets deferred cleanup run before the
		// process exits non-zero; os.Exit here would skip Close.
		return fmt.Errorf("overall status is %s", report.Status)
	}
	return nil
}
