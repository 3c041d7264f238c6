// Package health aggregates the health of the assistant's external
// dependencies into a single report.
//
// # Overview
//
// Collaborators register named probe functions with a Checker. CheckAll runs
// every probe concurrently, each raced against its own timeout, and folds
// the results into an overall status:
//
//   - healthy: every probe passed
//   - degraded: a probe reported degraded operation, or a non-critical
//     probe failed
//   - unhealthy: a critical probe failed (terminal for the run)
//
// The report also carries a snapshot of every circuit breaker's state for
// observability; breaker state never flips the overall status by itself.
//
// # Usage
//
//	checker := health.New(breakerMgr)
//	checker.Register("mlx", func(ctx context.Context) (health.CheckResponse, error) {
//	    return health.CheckResponse{Message: "model loaded"}, client.Ping(ctx)
//	})
//	checker.Register("cache", cacheProbe, health.WithCritical(false))
//
//	report := checker.CheckAll(ctx)
//
// StartPeriodicChecks runs CheckAll on an interval; probe failures during
// periodic polling are logged, never returned.
package health
