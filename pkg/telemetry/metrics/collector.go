package metrics

import (
	"net/http"

	"vesta-hq/vesta/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the orchestrator for all Prometheus metrics in Vesta.
// It manages metric registration and provides a unified interface for
// recording metrics across components.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	resilience *ResilienceMetrics
	provider   *ProviderMetrics
	health     *HealthMetrics
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil a fresh registry is created,
// so tests never share metric state.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "vesta"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Optimized for local LLM generation latencies (100ms - 60s)
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.resilience = NewResilienceMetrics(cfg, registry)
	c.provider = NewProviderMetrics(cfg, registry)
	c.health = NewHealthMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// enabled reports whether recording should happen.
func (c *Collector) enabled() bool {
	return c.config.Enabled
}
