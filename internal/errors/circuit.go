package errors

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without contacting the backend while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the position of a CircuitBreaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen admits one trial call after the cooldown.
	StateHalfOpen
)

func (s State) String() string {
	names := [...]string{"closed", "open", "half-open"}
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// CircuitBreaker stops calling an embedding backend after repeated failures
// and tries it again once the cooldown has passed. Cancellation by the
// caller is not counted as a failure.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures sets how many consecutive failures open the breaker.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.threshold = n }
}

// WithResetTimeout sets how long the breaker stays open.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.cooldown = d }
}

// NewCircuitBreaker opens after 5 consecutive failures for 30 seconds unless
// configured otherwise.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{name: name, threshold: 5, cooldown: 30 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name identifies the guarded backend.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State reports the breaker position, moving open to half-open once the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// Execute calls fn unless the breaker is open. In the half-open state only
// one caller makes the trial call; the others get ErrCircuitOpen until it finishes.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	state := cb.stateLocked()
	if state == StateOpen || (state == StateHalfOpen && cb.probing) {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.state = state
	cb.probing = state == StateHalfOpen
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	switch {
	case err == nil:
		cb.failures = 0
		cb.state = StateClosed
	case errors.Is(err, context.Canceled):
		// Leave the breaker as it was; the trial is retried by the next caller.
	default:
		cb.failures++
		if state == StateHalfOpen || cb.failures >= cb.threshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	return err
}

// Reset closes the breaker and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}
