package breaker

import (
	"errors"
	"fmt"
	"time"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed is the normal operating state. Calls flow through.
	StateClosed State = iota

	// StateOpen means the circuit has tripped and calls are rejected
	// without invoking the wrapped operation.
	StateOpen

	// StateHalfOpen means the breaker is testing whether the dependency
	// has recovered. A limited number of probe calls are allowed.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ErrCircuitOpen is matched by errors.Is when a call was rejected because
// the breaker is open. The concrete error returned is *OpenError.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrOperationTimeout is the failure recorded and returned when a wrapped
// operation exceeds the breaker's per-call timeout.
var ErrOperationTimeout = errors.New("operation timeout")

// OpenError is returned by Execute when the breaker rejects a call without
// running it. It satisfies errors.Is(err, ErrCircuitOpen).
type OpenError struct {
	// Name is the breaker that rejected the call.
	Name string

	// RetryAfter is how long until the breaker will allow a probe call.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("circuit breaker %q is open (retry after %s)", e.Name, e.RetryAfter)
	}
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// Is reports whether this error matches ErrCircuitOpen.
func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// Config configures circuit breaker behavior.
type Config struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the number of consecutive successes in half-open
	// state required to close the breaker. Default: 2
	SuccessThreshold int `yaml:"success_threshold"`

	// Timeout bounds a single wrapped operation. An operation exceeding it
	// is recorded as a failure with ErrOperationTimeout. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// ResetTimeout is how long an open breaker waits before allowing a
	// half-open probe call. Default: 30s
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// DefaultConfig returns the default breaker configuration used by
// collaborators that do not override it.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		ResetTimeout:     30 * time.Second,
	}
}

// withDefaults fills zero values with defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	return c
}

// Stats contains cumulative counters for a single breaker.
type Stats struct {
	// TotalRequests counts every call to Execute, including rejected ones.
	TotalRequests int64 `json:"total_requests"`

	// SuccessfulRequests counts operations that completed without error.
	SuccessfulRequests int64 `json:"successful_requests"`

	// FailedRequests counts operations that returned an error or timed out.
	FailedRequests int64 `json:"failed_requests"`

	// RejectedRequests counts calls rejected while the breaker was open.
	// A rejected call never runs the operation and never counts as a failure.
	RejectedRequests int64 `json:"rejected_requests"`

	// LastFailureTime is when the most recent failure was recorded.
	LastFailureTime time.Time `json:"last_failure_time,omitzero"`

	// LastSuccessTime is when the most recent success was recorded.
	LastSuccessTime time.Time `json:"last_success_time,omitzero"`
}

// Status is a point-in-time snapshot of a breaker, suitable for health
// reports and metrics export.
type Status struct {
	Name         string    `json:"name"`
	State        string    `json:"state"`
	FailureCount int       `json:"failure_count"`
	SuccessCount int       `json:"success_count"`
	NextAttempt  time.Time `json:"next_attempt,omitzero"`
	Stats        Stats     `json:"stats"`
}

// Event describes a single state transition of a named breaker.
type Event struct {
	// Name is the breaker that transitioned.
	Name string

	// From and To are the states before and after the transition.
	From State
	To   State

	// At is when the transition happened.
	At time.Time
}

// Listener receives state transition events. Listeners are invoked
// synchronously after the breaker's lock is released; a slow listener delays
// the caller that triggered the transition, not other callers.
type Listener func(Event)
