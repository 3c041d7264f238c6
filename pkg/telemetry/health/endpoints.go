package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// livenessResponse is the body returned by the liveness endpoint.
type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
// It reports ok whenever the process is running; no probes are executed.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(livenessResponse{
				Status:    "ok",
				Timestamp: time.Now(),
			})
		}
	}
}

// ReadinessHandler returns an HTTP handler for the readiness probe endpoint.
// It runs all registered probes and returns:
//
//   - 200 OK: overall status healthy or degraded
//   - 503 Service Unavailable: overall status unhealthy
//
// A degraded assistant still serves traffic, so degraded maps to 200.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		report := c.CheckAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(report)
		}
	}
}

// ReportHandler returns an HTTP handler serving the full health report,
// including the circuit breaker snapshot, always with status 200. It is
// meant for dashboards and debugging rather than orchestration probes.
func (c *Checker) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		report := c.CheckAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(report)
	}
}
