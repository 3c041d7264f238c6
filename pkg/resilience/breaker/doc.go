// Package breaker implements the circuit breaker pattern for outbound calls
// to unreliable dependencies.
//
// # Overview
//
// A Breaker wraps calls to a single named dependency (the local LLM server,
// an image API, the message store) and tracks their outcomes. After a run of
// consecutive failures the breaker opens and rejects calls immediately,
// giving the dependency time to recover. After a cooldown a single probe call
// is allowed through; enough consecutive successes close the breaker again.
//
// # States
//
//	CLOSED ──[failure threshold]──► OPEN
//	   ▲                              │
//	   │                       [reset timeout]
//	   │                              ▼
//	   └──[success threshold]── HALF_OPEN ──[any failure]──► OPEN
//
// # Usage
//
//	mgr := breaker.NewManager(breaker.DefaultConfig())
//	b := mgr.Get("mlx")
//
//	err := b.Execute(ctx, func(ctx context.Context) error {
//	    return client.Generate(ctx, req)
//	})
//	if errors.Is(err, breaker.ErrCircuitOpen) {
//	    // Dependency is known to be down, fail fast.
//	}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Execute is expected
// to be called concurrently by many in-flight operations against the same
// named dependency; all state mutation is mutex-guarded.
package breaker
