// Package server provides the ops HTTP server exposing the assistant's
// health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"
	"vesta-hq/vesta/pkg/telemetry/metrics"
)

// Server is the ops HTTP server. It serves:
//
//   - /healthz  - liveness (always 200 while the process runs)
//   - /readyz   - readiness (503 when a critical dependency is down)
//   - /health   - full health report with breaker status
//   - /metrics  - Prometheus exposition (when metrics are enabled)
type Server struct {
	cfg     config.ServerConfig
	checker *health.Checker
	metrics *metrics.Collector
	logger  *slog.Logger

	httpServer   *http.Server
	shutdownChan chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New creates an ops server. The metrics collector may be nil when
// metrics are disabled.
func New(cfg config.ServerConfig, checker *health.Checker, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		checker:      checker,
		metrics:      collector,
		logger:       logger.With("component", "ops-server"),
		shutdownChan: make(chan struct{}),
	}
}

// Handler returns the routed HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.checker.ReadinessHandler())
	mux.HandleFunc("/health", s.checker.ReportHandler())
	if s.metrics != nil {
		if h := s.metrics.Handler(); h != nil {
			mux.Handle("/metrics", h)
		}
	}
	return mux
}

// Start starts the server and blocks until the context is cancelled,
// Shutdown is called, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down ops server")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		srv := s.httpServer
		s.mu.Unlock()

		if !running || srv == nil {
			return
		}

		s.logger.Info("shutting down ops server", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	})

	return shutdownErr
}

// Stop requests shutdown from another goroutine. Start returns after
// the graceful shutdown completes.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
	})
}
