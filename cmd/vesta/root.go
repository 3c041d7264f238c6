package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vesta",
	Short: "Vesta - personal automation assistant runtime",
	Long: `Vesta is a personal automation assistant runtime.

It bridges a local chat application, an MLX inference server, and
image/search APIs, providing:
  - Circuit breakers and rate limiting for every dependency
  - Concurrent health monitoring with liveness/readiness endpoints
  - SQLite-backed conversation history
  - Cron-scheduled automation jobs
  - Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "vesta.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
