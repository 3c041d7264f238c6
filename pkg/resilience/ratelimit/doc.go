// Package ratelimit provides client-side rate limiting for calls to external
// dependencies.
//
// # Overview
//
// The package implements two strategies behind a single Limiter facade:
//
//   - Token Bucket: enforces an average rate while allowing bursts up to a
//     configurable capacity. Tokens refill lazily based on elapsed time.
//   - Sliding Window: enforces an exact cap on requests within any trailing
//     time window, tracked as a pruned timestamp log.
//
// # Token Bucket
//
//	bucket := ratelimit.NewTokenBucket(5, 5, time.Second) // capacity 5, 5 tokens/sec
//	if bucket.TryConsume(1) {
//	    // Request allowed
//	}
//
// # Sliding Window
//
//	window := ratelimit.NewSlidingWindow(3, time.Second) // 3 requests per second
//	if window.TryRequest() {
//	    // Request allowed
//	}
//
// # Limiter Facade
//
// Collaborators normally use the Limiter facade through a Manager:
//
//	mgr := ratelimit.NewManager(ratelimit.Config{
//	    Strategy:    ratelimit.StrategyTokenBucket,
//	    MaxRequests: 10,
//	    Window:      time.Minute,
//	})
//	lim := mgr.Get("search")
//
//	err := lim.Execute(ctx, func(ctx context.Context) error {
//	    return client.Search(ctx, query)
//	})
//	if errors.Is(err, ratelimit.ErrRateLimited) {
//	    // Rejected without invoking the operation.
//	}
//
// Rate limiter rejection never starts the operation, and never counts as a
// failure for any circuit breaker layered underneath.
//
// # Thread Safety
//
// All limiters are thread-safe. Refill and pruning happen lazily at call
// time using monotonic clock readings; no background timers are involved.
package ratelimit
