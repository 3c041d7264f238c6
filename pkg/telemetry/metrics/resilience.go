package metrics

import (
	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/resilience/breaker"

	"github.com/prometheus/client_golang/prometheus"
)

// ResilienceMetrics tracks circuit breaker and rate limiter behavior.
//
// Metrics:
//   - vesta_breaker_state: Current state per breaker (0=closed, 1=half-open, 2=open)
//   - vesta_breaker_transitions_total: State transitions by breaker, from, to
//   - vesta_breaker_requests_total: Execute outcomes by breaker and outcome
//   - vesta_limiter_requests_total: Admission checks by limiter and outcome
type ResilienceMetrics struct {
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	breakerRequests    *prometheus.CounterVec
	limiterRequests    *prometheus.CounterVec
}

// NewResilienceMetrics creates and registers resilience metrics.
func NewResilienceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ResilienceMetrics {
	rm := &ResilienceMetrics{
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),

		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "breaker_transitions_total",
				Help:      "Total circuit breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),

		breakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "breaker_requests_total",
				Help:      "Total requests through circuit breakers by outcome",
			},
			[]string{"breaker", "outcome"},
		),

		limiterRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "limiter_requests_total",
				Help:      "Total rate limiter admission checks by outcome",
			},
			[]string{"limiter", "outcome"},
		),
	}

	registry.MustRegister(
		rm.breakerState,
		rm.breakerTransitions,
		rm.breakerRequests,
		rm.limiterRequests,
	)

	return rm
}

// stateValue maps a breaker state to its gauge value.
func stateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateHalfOpen:
		return 1
	case breaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ObserveBreakerEvent records a state transition. It has the breaker
// Listener signature, so it can be passed to Manager.Subscribe directly.
func (c *Collector) ObserveBreakerEvent(ev breaker.Event) {
	if !c.enabled() {
		return
	}
	c.resilience.breakerState.WithLabelValues(ev.Name).Set(stateValue(ev.To))
	c.resilience.breakerTransitions.WithLabelValues(
		ev.Name, ev.From.String(), ev.To.String()).Inc()
}

// RecordBreakerResult records one Execute outcome: "success", "failure" or
// "rejected".
func (c *Collector) RecordBreakerResult(name, outcome string) {
	if !c.enabled() {
		return
	}
	c.resilience.breakerRequests.WithLabelValues(name, outcome).Inc()
}

// RecordLimiterResult records one admission check outcome.
func (c *Collector) RecordLimiterResult(name string, allowed bool) {
	if !c.enabled() {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "blocked"
	}
	c.resilience.limiterRequests.WithLabelValues(name, outcome).Inc()
}
