package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vesta-hq/vesta/pkg/resilience/breaker"
)

// DefaultCheckTimeout bounds a single probe unless overridden per check.
const DefaultCheckTimeout = 5 * time.Second

// entry is the registration record for one named probe.
type entry struct {
	name     string
	fn       CheckFunc
	critical bool
	timeout  time.Duration

	lastStatus          *CheckResult
	lastCheck           time.Time
	consecutiveFailures int
}

// Checker orchestrates health probes for the assistant's dependencies.
//
// Probes run concurrently in CheckAll, each bounded by its own timeout so a
// hung dependency is reported as an error, never as a hang. The Checker is
// constructed explicitly and injected; tests use isolated instances.
type Checker struct {
	breakers *breaker.Manager
	logger   *slog.Logger

	mu       sync.RWMutex
	entries  map[string]*entry
	onReport []func(Report)

	pollMu   sync.Mutex
	pollStop chan struct{}
	pollDone chan struct{}
}

// New creates a health checker. breakers may be nil when no breaker
// registry should be folded into reports.
func New(breakers *breaker.Manager) *Checker {
	return &Checker{
		breakers: breakers,
		logger:   slog.Default().With("component", "health"),
		entries:  make(map[string]*entry),
	}
}

// SetLogger replaces the logger used for periodic poll reporting.
func (c *Checker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// OnReport registers a hook invoked with every completed report, from
// both CheckAll calls and periodic polls. The metrics collector's
// RecordHealthReport is the typical subscriber.
func (c *Checker) OnReport(fn func(Report)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReport = append(c.onReport, fn)
}

// Register adds a named probe. Probes are critical with the default timeout
// unless options say otherwise. Registering an existing name replaces it.
func (c *Checker) Register(name string, fn CheckFunc, opts ...Option) {
	e := &entry{
		name:     name,
		fn:       fn,
		critical: true,
		timeout:  DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = e
}

// Unregister removes a named probe.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Names returns the names of all registered probes.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}

// CheckAll runs every registered probe concurrently and aggregates the
// results.
//
// Aggregation starts at healthy. A degraded result downgrades healthy to
// degraded. An unhealthy result on a critical check forces the overall
// status to unhealthy for the rest of the run; on a non-critical check it
// only downgrades healthy to degraded.
func (c *Checker) CheckAll(ctx context.Context) Report {
	c.mu.RLock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(entries))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()

			result := c.runCheck(ctx, e)

			resultMu.Lock()
			results[e.name] = result
			resultMu.Unlock()
		}(e)
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    results,
	}

	for _, result := range results {
		report.Summary.Total++
		switch result.Status {
		case StatusHealthy:
			report.Summary.Healthy++
		case StatusDegraded:
			report.Summary.Degraded++
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		case StatusUnhealthy:
			report.Summary.Unhealthy++
			if result.Critical {
				// Terminal: no later result can upgrade the run.
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}

	if c.breakers != nil {
		report.CircuitBreakers = c.breakers.AllStatus()
	}

	c.mu.RLock()
	hooks := make([]func(Report), len(c.onReport))
	copy(hooks, c.onReport)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(report)
	}

	return report
}

// runCheck executes one probe bounded by its timeout and records the
// outcome on the registration entry.
func (c *Checker) runCheck(ctx context.Context, e *entry) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	type outcome struct {
		resp CheckResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := e.fn(checkCtx)
		done <- outcome{resp, err}
	}()

	var result CheckResult
	select {
	case out := <-done:
		result = c.buildResult(e, out.resp, out.err, time.Since(start))
	case <-checkCtx.Done():
		// The probe keeps running in the background; its late result is
		// discarded.
		result = c.buildResult(e, CheckResponse{},
			fmt.Errorf("health check timeout after %s", e.timeout), time.Since(start))
	}

	c.mu.Lock()
	if result.Status == StatusUnhealthy {
		e.consecutiveFailures++
	} else {
		e.consecutiveFailures = 0
	}
	result.ConsecutiveFailures = e.consecutiveFailures
	e.lastStatus = &result
	e.lastCheck = result.Timestamp
	c.mu.Unlock()

	return result
}

// buildResult converts a probe outcome into a CheckResult.
func (c *Checker) buildResult(e *entry, resp CheckResponse, err error, dur time.Duration) CheckResult {
	result := CheckResult{
		Status:    StatusHealthy,
		Message:   resp.Message,
		Details:   resp.Details,
		Critical:  e.critical,
		Timestamp: time.Now(),
		Duration:  dur,
	}

	switch {
	case err != nil:
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		if result.Message == "" {
			result.Message = err.Error()
		}
	case resp.Degraded:
		result.Status = StatusDegraded
	}

	return result
}

// LastResult returns the most recent recorded result for a named probe, or
// false if it has never run.
func (c *Checker) LastResult(name string) (CheckResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok || e.lastStatus == nil {
		return CheckResult{}, false
	}
	return *e.lastStatus, true
}

// StartPeriodicChecks begins polling all probes on the given interval.
// Probe failures are logged (error level for critical checks, warn
// otherwise) and never returned. A second call while polling is active is a
// no-op.
func (c *Checker) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.pollStop != nil {
		return
	}
	c.pollStop = make(chan struct{})
	c.pollDone = make(chan struct{})

	go c.pollLoop(ctx, interval, c.pollStop, c.pollDone)
}

// Stop halts periodic polling and waits for the in-flight run to finish.
func (c *Checker) Stop() {
	c.pollMu.Lock()
	stop, done := c.pollStop, c.pollDone
	c.pollStop, c.pollDone = nil, nil
	c.pollMu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// pollLoop is the periodic polling goroutine.
func (c *Checker) pollLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("periodic health checks started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			report := c.CheckAll(ctx)
			c.logReport(report)
		}
	}
}

// logReport logs failing checks from a periodic run.
func (c *Checker) logReport(report Report) {
	for name, result := range report.Checks {
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Critical {
			c.logger.Error("health check failed",
				"check", name,
				"error", result.Error,
				"consecutive_failures", result.ConsecutiveFailures,
			)
		} else {
			c.logger.Warn("health check failed",
				"check", name,
				"error", result.Error,
				"consecutive_failures", result.ConsecutiveFailures,
			)
		}
	}

	if report.Status != StatusHealthy {
		c.logger.Warn("system health degraded",
			"status", report.Status,
			"unhealthy", report.Summary.Unhealthy,
			"degraded", report.Summary.Degraded,
		)
	}
}
