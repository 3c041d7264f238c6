package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/resilience/breaker"
	"vesta-hq/vesta/pkg/telemetry/health"
	"vesta-hq/vesta/pkg/telemetry/metrics"
)

func testServer(t *testing.T) (*Server, *health.Checker) {
	t.Helper()

	breakers := breaker.NewManager(breaker.DefaultConfig())
	checker := health.New(breakers)

	mcfg := config.MetricsConfig{Enabled: true, Namespace: "vesta"}
	collector := metrics.NewCollector(&mcfg, nil)

	cfg := config.NewDefault().Server
	return New(cfg, checker, collector, nil), checker
}

func TestHandler_Routes(t *testing.T) {
	srv, checker := testServer(t)
	checker.Register("ok", func(ctx context.Context) (health.CheckResponse, error) {
		return health.CheckResponse{}, nil
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz", "/health", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestHandler_ReadinessReflectsCriticalFailure(t *testing.T) {
	srv, checker := testServer(t)
	checker.Register("db", func(ctx context.Context) (health.CheckResponse, error) {
		return health.CheckResponse{}, errors.New("connection refused")
	}, health.WithCritical(true))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}

	// Liveness stays 200 regardless.
	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandler_HealthReportBody(t *testing.T) {
	srv, checker := testServer(t)
	checker.Register("llm", func(ctx context.Context) (health.CheckResponse, error) {
		return health.CheckResponse{Message: "model loaded"}, nil
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Status != health.StatusHealthy {
		t.Errorf("expected healthy, got %v", report.Status)
	}
	if _, ok := report.Checks["llm"]; !ok {
		t.Error("expected llm check in report")
	}
}

func TestHandler_NoMetricsWhenDisabled(t *testing.T) {
	breakers := breaker.NewManager(breaker.DefaultConfig())
	checker := health.New(breakers)
	cfg := config.NewDefault().Server

	srv := New(cfg, checker, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", resp.StatusCode)
	}
}

func TestStartAndStop(t *testing.T) {
	srv, _ := testServer(t)

	done := make(chan error, 1)
	go func() {
		done <- srv.Start(context.Background())
	}()

	// Give the listener a moment to come up, then request shutdown.
	time.Sleep(100 * time.Millisecond)
	srv.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStart_ContextCancellation(t *testing.T) {
	srv, _ := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down on context cancellation")
	}
}
