package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow implements exact-count sliding window rate limiting.
//
// The window keeps a log of accepted request timestamps and prunes entries
// older than the window on every check. This enforces "at most maxRequests
// in any trailing window" exactly, without the reset spike of fixed windows.
//
// # Algorithm
//
//  1. Drop timestamps at or before now - window
//  2. If fewer than maxRequests remain: record now and allow
//  3. Else: reject
//
// # Memory
//
// The log holds at most maxRequests timestamps after a successful check, so
// memory is bounded by the configured limit.
//
// # Thread Safety
//
// SlidingWindow is thread-safe using sync.Mutex for all operations.
type SlidingWindow struct {
	maxRequests int
	window      time.Duration
	requests    []time.Time // Accepted timestamps, oldest first
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter.
//
// Parameters:
//   - maxRequests: Maximum requests allowed in any trailing window
//   - window: Window duration
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// TryRequest attempts to record a request in the current window.
// Returns true if the request is within the limit, false otherwise.
func (sw *SlidingWindow) TryRequest() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Count returns the number of requests in the current window.
func (sw *SlidingWindow) Count() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(time.Now())
	return len(sw.requests)
}

// TimeUntilReset returns how long until the oldest in-window request ages
// out and one slot becomes available. Returns 0 when under capacity.
func (sw *SlidingWindow) TimeUntilReset() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)

	if len(sw.requests) < sw.maxRequests {
		return 0
	}

	wait := sw.requests[0].Add(sw.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Reset clears the request log.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// pruneLocked drops timestamps outside (now-window, now].
// Caller must hold the lock.
func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)

	keep := 0
	for keep < len(sw.requests) && !sw.requests[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		sw.requests = append(sw.requests[:0], sw.requests[keep:]...)
	}
}
