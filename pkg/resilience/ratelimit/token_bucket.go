package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket allows bursts up to its capacity while maintaining an average
// rate over time. Refill is computed lazily at call time from the number of
// whole refill intervals elapsed since the last refill; no background timer
// is involved. time.Time carries a monotonic clock reading, so wall-clock
// adjustments do not affect refill arithmetic.
//
// # Algorithm
//
//  1. elapsedIntervals = floor((now - lastRefill) / refillInterval)
//  2. tokens = min(capacity, tokens + elapsedIntervals * refillRate)
//  3. If tokens >= cost: consume and allow
//  4. Else: reject without partial consumption
//
// # Thread Safety
//
// TokenBucket is thread-safe using sync.Mutex for all operations.
type TokenBucket struct {
	capacity   float64       // Maximum tokens in bucket
	tokens     float64       // Current available tokens
	refillRate float64       // Tokens added per refill interval
	interval   time.Duration // Refill interval
	lastRefill time.Time     // Last time tokens were refilled
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter.
//
// Parameters:
//   - capacity: Maximum number of tokens in the bucket (burst size)
//   - refillRate: Number of tokens added per interval (average rate)
//   - interval: Length of one refill interval
//
// Example:
//
//	// 5 requests/sec average, burst up to 5
//	bucket := NewTokenBucket(5, 5, time.Second)
func NewTokenBucket(capacity, refillRate float64, interval time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity, // Start with full bucket
		refillRate: refillRate,
		interval:   interval,
		lastRefill: time.Now(),
	}
}

// TryConsume attempts to consume cost tokens from the bucket.
// Returns true if tokens were available and consumed, false otherwise.
// A failed attempt leaves the token count unchanged.
func (tb *TokenBucket) TryConsume(cost float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens >= cost {
		tb.tokens -= cost
		return true
	}
	return false
}

// Remaining returns the number of tokens currently available, after
// accounting for elapsed refill intervals.
func (tb *TokenBucket) Remaining() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.tokens
}

// Capacity returns the maximum bucket capacity.
func (tb *TokenBucket) Capacity() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity
}

// TimeUntilNextToken returns how long until at least one token is available.
// Returns 0 if a token is available now.
func (tb *TokenBucket) TimeUntilNextToken() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens >= 1 {
		return 0
	}

	intervalsNeeded := math.Ceil((1 - tb.tokens) / tb.refillRate)
	return time.Duration(intervalsNeeded) * tb.interval
}

// Reset refills the bucket to full capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refillLocked adds tokens for whole elapsed intervals since the last
// refill. Caller must hold the lock.
func (tb *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	intervals := float64(int64(elapsed / tb.interval))
	if intervals <= 0 {
		return
	}

	tb.tokens = math.Min(tb.capacity, tb.tokens+intervals*tb.refillRate)

	// Advance by the consumed whole intervals only, so the fractional
	// remainder keeps accruing toward the next refill.
	tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.interval)
}
