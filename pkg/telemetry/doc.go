// Package telemetry groups the assistant's observability concerns.
//
// # Components
//
//   - logging: structured slog setup (JSON or text)
//   - metrics: Prometheus metric collection and exposition
//   - health: concurrent dependency probes and aggregated reports
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	checker := health.New(breakers)
//	checker.Register("mlx", llm.Probe(), health.WithCritical(true))
package telemetry
