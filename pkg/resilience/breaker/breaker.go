package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Breaker implements the circuit breaker pattern for one named dependency.
//
// A Breaker starts closed. Consecutive failures up to FailureThreshold open
// it; while open, calls are rejected immediately with *OpenError until
// ResetTimeout has elapsed, after which the next call runs as a half-open
// probe. SuccessThreshold consecutive probe successes close the breaker; a
// single probe failure reopens it.
type Breaker struct {
	name   string
	config Config

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	nextAttempt  time.Time
	stats        Stats

	listeners []Listener
}

// New creates a breaker for the named dependency. Zero config values are
// replaced with defaults.
func New(name string, config Config) *Breaker {
	return &Breaker{
		name:   name,
		config: config.withDefaults(),
		state:  StateClosed,
	}
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Subscribe registers a listener for state transition events.
func (b *Breaker) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Execute runs the operation if the breaker allows it.
//
// If the breaker is open and the cooldown has not elapsed, Execute returns
// *OpenError without invoking the operation. Otherwise the operation runs
// bounded by the configured timeout; a timeout is recorded as a failure and
// returned as ErrOperationTimeout. Operation errors are recorded and
// propagated unwrapped.
//
// The operation receives a context that is cancelled when the timeout fires,
// but cancellation is best-effort: an operation that ignores its context may
// keep running in the background and its eventual result is discarded.
//
// Cancellation of the caller's context is propagated but not recorded as a
// failure: it reflects the caller giving up, not the dependency misbehaving.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := b.runBounded(ctx, op)
	b.afterCall(err)
	return err
}

// beforeCall admits or rejects the call and performs the open to half-open
// transition when the cooldown has elapsed.
func (b *Breaker) beforeCall() error {
	b.mu.Lock()

	b.stats.TotalRequests++

	if b.state == StateOpen {
		now := time.Now()
		if now.Before(b.nextAttempt) {
			b.stats.RejectedRequests++
			retryAfter := b.nextAttempt.Sub(now)
			b.mu.Unlock()
			return &OpenError{Name: b.name, RetryAfter: retryAfter}
		}

		// Cooldown elapsed: allow this call through as a probe.
		b.successCount = 0
		ev := b.transitionLocked(StateHalfOpen)
		b.mu.Unlock()
		b.dispatch(ev)
		return nil
	}

	b.mu.Unlock()
	return nil
}

// runBounded executes the operation racing against the breaker timeout.
func (b *Breaker) runBounded(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.NewTimer(b.config.Timeout)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrOperationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// afterCall records the settled outcome and drives state transitions.
// Caller-side cancellation says nothing about the dependency's health, so
// it counts as neither success nor failure.
func (b *Breaker) afterCall(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	b.mu.Lock()

	var ev *Event
	now := time.Now()

	if err != nil {
		b.stats.FailedRequests++
		b.stats.LastFailureTime = now
		b.failureCount++
		b.successCount = 0

		switch b.state {
		case StateHalfOpen:
			// A single failure during the probe phase reopens the breaker.
			ev = b.openLocked(now)
		case StateClosed:
			if b.failureCount >= b.config.FailureThreshold {
				ev = b.openLocked(now)
			}
		}
	} else {
		b.stats.SuccessfulRequests++
		b.stats.LastSuccessTime = now
		b.failureCount = 0

		if b.state == StateHalfOpen {
			b.successCount++
			if b.successCount >= b.config.SuccessThreshold {
				ev = b.closeLocked()
			}
		}
	}

	b.mu.Unlock()
	b.dispatch(ev)
}

// openLocked trips the breaker and schedules the next probe.
// Caller must hold the lock.
func (b *Breaker) openLocked(now time.Time) *Event {
	b.nextAttempt = now.Add(b.config.ResetTimeout)
	return b.transitionLocked(StateOpen)
}

// closeLocked returns the breaker to normal operation.
// Caller must hold the lock.
func (b *Breaker) closeLocked() *Event {
	b.failureCount = 0
	b.successCount = 0
	return b.transitionLocked(StateClosed)
}

// transitionLocked moves to the target state and returns the event to
// dispatch, or nil if the state is unchanged. Caller must hold the lock.
func (b *Breaker) transitionLocked(to State) *Event {
	if b.state == to {
		return nil
	}
	ev := &Event{
		Name: b.name,
		From: b.state,
		To:   to,
		At:   time.Now(),
	}
	b.state = to
	return ev
}

// dispatch fans an event out to all registered listeners.
// Must be called without holding the lock.
func (b *Breaker) dispatch(ev *Event) {
	if ev == nil {
		return
	}
	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l(*ev)
	}
}

// Open manually trips the breaker. Calls are rejected until ResetTimeout
// elapses.
func (b *Breaker) Open() {
	b.mu.Lock()
	ev := b.openLocked(time.Now())
	b.mu.Unlock()
	b.dispatch(ev)
}

// Close manually closes the breaker, clearing the consecutive counters but
// keeping cumulative statistics.
func (b *Breaker) Close() {
	b.mu.Lock()
	ev := b.closeLocked()
	b.mu.Unlock()
	b.dispatch(ev)
}

// Reset forces the breaker closed and zeroes all counters and statistics.
// Use when the dependency is known to have been fixed externally.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.failureCount = 0
	b.successCount = 0
	b.nextAttempt = time.Time{}
	b.stats = Stats{}
	ev := b.transitionLocked(StateClosed)
	b.mu.Unlock()
	b.dispatch(ev)
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Healthy reports whether the breaker is closed.
func (b *Breaker) Healthy() bool {
	return b.State() == StateClosed
}

// Status returns a point-in-time snapshot of the breaker.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Name:         b.name,
		State:        b.state.String(),
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		NextAttempt:  b.nextAttempt,
		Stats:        b.stats,
	}
}
