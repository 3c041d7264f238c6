package health

import (
	"context"
	"time"

	"vesta-hq/vesta/pkg/resilience/breaker"
)

// Status is the health status of a single check or of the whole system.
type Status string

const (
	// StatusHealthy means the component is fully operational.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the component works in a reduced mode, or a
	// non-critical component is down.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means the component is down.
	StatusUnhealthy Status = "unhealthy"
)

// CheckResponse is what a probe returns when it completes without error.
type CheckResponse struct {
	// Message is a short human-readable summary ("model loaded", "42ms ping").
	Message string `json:"message,omitempty"`

	// Details carries optional structured context for the report.
	Details map[string]any `json:"details,omitempty"`

	// Degraded marks the component as operational but impaired.
	Degraded bool `json:"-"`
}

// CheckFunc probes one dependency. Returning an error marks the dependency
// unhealthy; the error is captured in the report, never propagated.
type CheckFunc func(ctx context.Context) (CheckResponse, error)

// CheckResult is the recorded outcome of a single probe run.
type CheckResult struct {
	// Status is the probe outcome.
	Status Status `json:"status"`

	// Message is the probe's summary, or the failure description.
	Message string `json:"message,omitempty"`

	// Details carries the probe's structured context.
	Details map[string]any `json:"details,omitempty"`

	// Error is the probe error text, set only on failure.
	Error string `json:"error,omitempty"`

	// Critical mirrors the registration flag for report consumers.
	Critical bool `json:"critical"`

	// Timestamp is when the probe finished.
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration_ms"`

	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures,omitempty"`
}

// Summary counts probe outcomes in a single report.
type Summary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
}

// Report is the aggregated output of CheckAll.
type Report struct {
	// Status is the overall system status per the aggregation rule.
	Status Status `json:"status"`

	// Timestamp is when the report was produced.
	Timestamp time.Time `json:"timestamp"`

	// Checks holds each probe's result, keyed by registration name.
	Checks map[string]CheckResult `json:"checks"`

	// Summary counts the outcomes in Checks.
	Summary Summary `json:"summary"`

	// CircuitBreakers is an observability snapshot of every registered
	// breaker. It does not feed the aggregation rule.
	CircuitBreakers map[string]breaker.Status `json:"circuit_breakers,omitempty"`
}

// Option customizes a single check registration.
type Option func(*entry)

// WithCritical marks whether a failing probe forces the whole system
// unhealthy. Checks are critical by default.
func WithCritical(critical bool) Option {
	return func(e *entry) {
		e.critical = critical
	}
}

// WithTimeout overrides the per-probe timeout (default 5s).
func WithTimeout(timeout time.Duration) Option {
	return func(e *entry) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}
