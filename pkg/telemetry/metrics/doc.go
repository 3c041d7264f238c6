// Package metrics exposes Prometheus metrics for the assistant's resilience
// control plane and its collaborators.
//
// # Overview
//
// The Collector owns a Prometheus registry and three metric subsystems:
//
//   - Resilience: circuit breaker state and transitions, rate limiter
//     allowed/blocked counts
//   - Provider: outbound request counts, latencies, and generated tokens
//   - Health: per-check and overall health status gauges
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	breakerMgr.Subscribe(collector.ObserveBreakerEvent)
//
//	mux.Handle("/metrics", collector.Handler())
//
// All recording methods are no-ops when metrics are disabled in the
// configuration, so call sites never need to guard.
package metrics
