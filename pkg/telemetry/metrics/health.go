package metrics

import (
	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthMetrics tracks health check outcomes.
//
// Metrics:
//   - vesta_health_status: Overall status (0=healthy, 1=degraded, 2=unhealthy)
//   - vesta_health_check_status: Per-check status with the same encoding
//   - vesta_health_check_duration_seconds: Last probe duration per check
type HealthMetrics struct {
	overallStatus prometheus.Gauge
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.GaugeVec
}

// NewHealthMetrics creates and registers health metrics.
func NewHealthMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HealthMetrics {
	hm := &HealthMetrics{
		overallStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "health_status",
			Help:      "Overall health status (0=healthy, 1=degraded, 2=unhealthy)",
		}),

		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "health_check_status",
				Help:      "Per-check health status (0=healthy, 1=degraded, 2=unhealthy)",
			},
			[]string{"check"},
		),

		checkDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "health_check_duration_seconds",
				Help:      "Duration of the most recent run of each health check",
			},
			[]string{"check"},
		),
	}

	registry.MustRegister(hm.overallStatus, hm.checkStatus, hm.checkDuration)
	return hm
}

// statusValue maps a health status to its gauge value.
func statusValue(s health.Status) float64 {
	switch s {
	case health.StatusDegraded:
		return 1
	case health.StatusUnhealthy:
		return 2
	default:
		return 0
	}
}

// RecordHealthReport exports a health report's statuses as gauges.
func (c *Collector) RecordHealthReport(report health.Report) {
	if !c.enabled() {
		return
	}

	c.health.overallStatus.Set(statusValue(report.Status))

	for name, result := range report.Checks {
		c.health.checkStatus.WithLabelValues(name).Set(statusValue(result.Status))
		c.health.checkDuration.WithLabelValues(name).Set(result.Duration.Seconds())
	}
}
