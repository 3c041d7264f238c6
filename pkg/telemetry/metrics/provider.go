package metrics

import (
	"time"

	"vesta-hq/vesta/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks outbound calls to content providers (LLM server,
// image API, search API).
//
// Metrics:
//   - vesta_provider_requests_total: Request count by provider, operation, status
//   - vesta_provider_request_duration_seconds: Request duration histogram
//   - vesta_provider_tokens_generated_total: LLM tokens generated
type ProviderMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensGenerated *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_requests_total",
				Help:      "Total provider requests by operation and status",
			},
			[]string{"provider", "operation", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Duration of provider requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "operation"},
		),

		tokensGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_tokens_generated_total",
				Help:      "Total LLM tokens generated",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(pm.requestsTotal, pm.requestDuration, pm.tokensGenerated)
	return pm
}

// RecordProviderRequest records a completed provider call.
func (c *Collector) RecordProviderRequest(provider, operation, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.provider.requestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.provider.requestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordTokensGenerated records tokens produced by an LLM generation call.
func (c *Collector) RecordTokensGenerated(provider string, tokens int) {
	if !c.enabled() || tokens <= 0 {
		return
	}
	c.provider.tokensGenerated.WithLabelValues(provider).Add(float64(tokens))
}
