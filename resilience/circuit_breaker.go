package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed passes every call through.
	StateClosed State = iota
	// StateOpen rejects calls until Timeout has passed.
	StateOpen
	// StateHalfOpen lets a few trial calls test whether the provider recovered.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned without calling the protected function while
// the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name labels state change callbacks, usually the provider name.
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before letting trial calls through.
	Timeout time.Duration
	// HalfOpenMaxCalls is the number of trial calls, and of trial successes
	// needed to close the circuit again.
	HalfOpenMaxCalls int
	// IsFailure decides which errors count against the provider. Defaults to
	// IsTransient, so a 404 or a rejected request never opens the circuit.
	IsFailure func(error) bool
	// OnStateChange is called with the lock held; it must not call back
	// into the breaker.
	OnStateChange func(name string, from, to State)
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultCircuitBreakerConfig opens after five transient failures and
// tries again after thirty seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
		IsFailure:        IsTransient,
	}
}

// CircuitBreaker fails fast while a provider keeps returning transient
// errors.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
	trialOK  int
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = defaults.HalfOpenMaxCalls
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaults.IsFailure
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err != nil && cb.cfg.IsFailure(err))
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.observe()
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
	cb.failures = 0
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.observe() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.trials < cb.cfg.HalfOpenMaxCalls {
			cb.trials++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.observe()
	if !failed {
		if state == StateHalfOpen {
			if cb.trialOK++; cb.trialOK >= cb.cfg.HalfOpenMaxCalls {
				cb.moveTo(StateClosed)
			}
		}
		cb.failures = 0
		return
	}

	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.openedAt = cb.cfg.Now()
		cb.moveTo(StateOpen)
	}
}

// observe turns an open circuit half-open once Timeout has passed. Callers
// hold mu.
func (cb *CircuitBreaker) observe() State {
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.Timeout {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveTo(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state, cb.trials, cb.trialOK = to, 0, 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
