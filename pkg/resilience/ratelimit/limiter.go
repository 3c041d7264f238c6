package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the facade collaborators use to rate limit calls to one named
// resource. It wraps exactly one strategy selected by Config.Strategy.
//
// For the token bucket strategy the refill rate is derived from the config
// as MaxRequests per Window, expressed in tokens per 1-second interval, with
// bucket capacity BurstLimit (default MaxRequests).
type Limiter struct {
	config Config

	bucket *TokenBucket   // Set when Strategy == StrategyTokenBucket
	window *SlidingWindow // Set when Strategy == StrategySlidingWindow

	mu    sync.Mutex
	stats Stats
}

// NewLimiter creates a limiter with the given configuration. Zero config
// values are replaced with defaults.
func NewLimiter(config Config) *Limiter {
	config = config.withDefaults()

	l := &Limiter{
		config: config,
		stats:  Stats{LastReset: time.Now()},
	}

	switch config.Strategy {
	case StrategySlidingWindow:
		l.window = NewSlidingWindow(config.MaxRequests, config.Window)
	default:
		refillRate := float64(config.MaxRequests) / config.Window.Seconds()
		l.bucket = NewTokenBucket(float64(config.BurstLimit), refillRate, time.Second)
	}

	return l
}

// Execute runs the operation if capacity is available, consuming one unit.
//
// If capacity is exhausted it returns *LimitError without invoking the
// operation. Rejection never counts as an operation failure for any circuit
// breaker wrapped inside the operation.
func (l *Limiter) Execute(ctx context.Context, op func(context.Context) error) error {
	return l.ExecuteN(ctx, 1, op)
}

// ExecuteN runs the operation if cost units of capacity are available.
// The sliding window strategy treats any cost as a single request.
func (l *Limiter) ExecuteN(ctx context.Context, cost int, op func(context.Context) error) error {
	if !l.Allow(cost) {
		return &LimitError{
			Limit:      l.config.MaxRequests,
			Window:     l.config.Window,
			RetryAfter: l.RetryAfter(),
		}
	}
	return op(ctx)
}

// Allow checks and consumes capacity without running anything.
func (l *Limiter) Allow(cost int) bool {
	var allowed bool
	if l.window != nil {
		allowed = l.window.TryRequest()
	} else {
		allowed = l.bucket.TryConsume(float64(cost))
	}

	l.mu.Lock()
	l.stats.TotalRequests++
	if allowed {
		l.stats.AllowedRequests++
	} else {
		l.stats.BlockedRequests++
	}
	l.mu.Unlock()

	return allowed
}

// RetryAfter returns how long to wait before capacity becomes available.
// Returns 0 when capacity is available now.
func (l *Limiter) RetryAfter() time.Duration {
	if l.window != nil {
		return l.window.TimeUntilReset()
	}
	return l.bucket.TimeUntilNextToken()
}

// Strategy returns the configured strategy.
func (l *Limiter) Strategy() Strategy {
	return l.config.Strategy
}

// Stats returns a snapshot of the limiter's counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Reset restores full capacity and zeroes the counters.
func (l *Limiter) Reset() {
	if l.window != nil {
		l.window.Reset()
	} else {
		l.bucket.Reset()
	}

	l.mu.Lock()
	l.stats = Stats{LastReset: time.Now()}
	l.mu.Unlock()
}
