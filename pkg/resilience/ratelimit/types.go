package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Strategy selects the rate limiting algorithm for a Limiter.
type Strategy string

const (
	// StrategyTokenBucket enforces an average rate with burst capacity.
	StrategyTokenBucket Strategy = "token-bucket"

	// StrategySlidingWindow enforces an exact request cap per trailing window.
	StrategySlidingWindow Strategy = "sliding-window"
)

// ErrRateLimited is matched by errors.Is when a call was rejected by a
// limiter. The concrete error returned is *LimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError is returned by Execute when the limiter rejects a call without
// running it. It satisfies errors.Is(err, ErrRateLimited).
type LimitError struct {
	// Limit is the configured maximum number of requests per window.
	Limit int

	// Window is the window the limit applies to.
	Window time.Duration

	// RetryAfter is how long to wait before capacity becomes available.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded: %d requests per %s (retry after %s)",
			e.Limit, e.Window, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// Is reports whether this error matches ErrRateLimited.
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Config configures a single Limiter.
type Config struct {
	// Strategy selects the algorithm. Default: StrategyTokenBucket.
	Strategy Strategy `yaml:"strategy"`

	// MaxRequests is the number of requests allowed per Window.
	MaxRequests int `yaml:"max_requests"`

	// Window is the time span MaxRequests applies to.
	Window time.Duration `yaml:"window"`

	// BurstLimit is the token bucket capacity. Zero means MaxRequests.
	// Ignored by the sliding window strategy.
	BurstLimit int `yaml:"burst_limit"`
}

// withDefaults fills zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyTokenBucket
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = 60
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.BurstLimit <= 0 {
		c.BurstLimit = c.MaxRequests
	}
	return c
}

// Stats contains cumulative counters for a single limiter.
type Stats struct {
	// TotalRequests counts every admission check.
	TotalRequests int64 `json:"total_requests"`

	// AllowedRequests counts checks that acquired capacity.
	AllowedRequests int64 `json:"allowed_requests"`

	// BlockedRequests counts checks rejected for lack of capacity.
	BlockedRequests int64 `json:"blocked_requests"`

	// LastReset is when the stats were last zeroed.
	LastReset time.Time `json:"last_reset,omitzero"`
}
