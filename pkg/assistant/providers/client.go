package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/resilience/breaker"
	"vesta-hq/vesta/pkg/resilience/ratelimit"

	"github.com/google/uuid"
)

// Recorder receives request outcomes for metric export. The telemetry
// metrics collector satisfies this interface; a nil Recorder disables
// recording.
type Recorder interface {
	RecordProviderRequest(provider, operation, status string, duration time.Duration)
	RecordTokensGenerated(provider string, tokens int)
	RecordBreakerResult(name, outcome string)
	RecordLimiterResult(name string, allowed bool)
}

// Options carries the collaborators shared by all provider clients.
type Options struct {
	// Breaker guards requests against a failing provider. Optional.
	Breaker *breaker.Breaker

	// Limiter throttles outbound request rate. Optional. The limiter is
	// consulted before the breaker, so a throttled request never counts
	// as a breaker failure.
	Limiter *ratelimit.Limiter

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives request outcomes. Optional.
	Metrics Recorder

	// HTTPClient overrides the default HTTP client. Useful in tests.
	HTTPClient *http.Client
}

// httpClient is the shared base for the concrete provider clients.
// It handles resilience wrapping, request construction, status code
// mapping, and response decoding.
type httpClient struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration

	http    *http.Client
	breaker *breaker.Breaker
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	metrics Recorder
}

func newHTTPClient(name string, cfg config.ProviderConfig, opts Options) *httpClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}

	return &httpClient{
		name:    name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    client,
		breaker: opts.Breaker,
		limiter: opts.Limiter,
		logger:  logger.With("provider", name),
		metrics: opts.Metrics,
	}
}

// Name returns the provider's configured name.
func (c *httpClient) Name() string {
	return c.name
}

// Breaker returns the circuit breaker guarding this client, or nil.
func (c *httpClient) Breaker() *breaker.Breaker {
	return c.breaker
}

// doJSON performs a request through the limiter and breaker, decoding a
// JSON response body into out when out is non-nil.
func (c *httpClient) doJSON(ctx context.Context, operation, method, path string, in, out any) error {
	requestID := uuid.NewString()
	start := time.Now()

	op := func(ctx context.Context) error {
		return c.send(ctx, requestID, method, path, in, out)
	}

	var err error
	switch {
	case c.limiter != nil && c.breaker != nil:
		err = c.limiter.Execute(ctx, func(ctx context.Context) error {
			return c.breaker.Execute(ctx, op)
		})
	case c.limiter != nil:
		err = c.limiter.Execute(ctx, op)
	case c.breaker != nil:
		err = c.breaker.Execute(ctx, op)
	default:
		err = op(ctx)
	}

	duration := time.Since(start)
	status := outcomeLabel(err)
	if c.metrics != nil {
		c.metrics.RecordProviderRequest(c.name, operation, status, duration)
		if c.limiter != nil {
			c.metrics.RecordLimiterResult(c.name, status != "throttled")
		}
		if c.breaker != nil && status != "throttled" {
			// Throttled calls never reach the breaker.
			c.metrics.RecordBreakerResult(c.name, status)
		}
	}

	if err != nil {
		c.logger.Warn("provider request failed",
			"operation", operation,
			"request_id", requestID,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	c.logger.Debug("provider request completed",
		"operation", operation,
		"request_id", requestID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// send performs one HTTP exchange. It runs inside the breaker, so any
// error it returns counts as a breaker failure.
func (c *httpClient) send(ctx context.Context, requestID, method, path string, in, out any) error {
	var bodyReader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{
			Provider: c.name,
			Message:  "request failed",
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{
			Provider: c.name,
			Message:  "failed to read response",
			Cause:    err,
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Provider: c.name, Message: string(raw)}
	default:
		return &ProviderError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{
			Provider:    c.name,
			RawResponse: string(raw),
			Cause:       err,
		}
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ratelimit.ErrRateLimited):
		return "throttled"
	case errors.Is(err, breaker.ErrCircuitOpen):
		return "rejected"
	case errors.Is(err, breaker.ErrOperationTimeout):
		return "timeout"
	default:
		return "error"
	}
}
