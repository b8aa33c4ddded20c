// Package resilience guards calls to the text-generation service: a circuit
// breaker that stops a batch from waiting on a dead model server, retry for
// the pre-batch probe, and transient-error classification.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	// CircuitHalfOpen admits one probe at a time after the cool-down.
	CircuitHalfOpen
)

var stateNames = map[CircuitState]string{
	CircuitClosed:   "closed",
	CircuitOpen:     "open",
	CircuitHalfOpen: "half-open",
}

func (s CircuitState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ErrCircuitOpen is returned when a generation call is skipped because the
// service failed too many times in a row.
var ErrCircuitOpen = eris.New("generation circuit is open")

// CircuitBreakerConfig controls when the breaker opens and how long it
// stays open.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive counted failures open the circuit.
	FailureThreshold int
	// ResetTimeout is the cool-down before a probe is admitted.
	ResetTimeout time.Duration
	// ShouldTrip filters which errors count. Nil counts every error.
	ShouldTrip func(err error) bool
	// OnStateChange runs on each transition while the lock is held.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig opens after 3 failures and cools down for a
// minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute}
}

// CircuitBreaker is shared by every worker of a batch.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker. Non-positive settings fall
// back to the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// ExecuteVal runs fn when the breaker admits the call and records its
// outcome. A rejected call returns the zero value and ErrCircuitOpen.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if !cb.Allow() {
		var zero T
		return zero, ErrCircuitOpen
	}
	v, err := fn(ctx)
	cb.Done(err)
	return v, err
}

// State reports the current state. An open breaker past its cool-down
// reports half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.cooled() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Failures returns the current run of counted failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) cooled() bool {
	return cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout
}

// Allow reports whether a call may proceed. Every admitted call must be
// followed by Done or Release. While half-open only the first caller is
// admitted; the rest are rejected until its outcome is known.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitOpen:
		if !cb.cooled() {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// Done records the outcome of an admitted call.
func (cb *CircuitBreaker) Done(err error) {
	counted := err != nil && (cb.cfg.ShouldTrip == nil || cb.cfg.ShouldTrip(err))

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if !counted {
		cb.failures = 0
		if cb.state == CircuitHalfOpen {
			cb.setState(CircuitClosed)
		}
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.now()
		if cb.state != CircuitOpen {
			cb.setState(CircuitOpen)
		}
	}
}

// Release ends an admitted call without recording an outcome, as when the
// caller was cancelled. A half-open breaker admits the next probe.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

func (cb *CircuitBreaker) setState(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
