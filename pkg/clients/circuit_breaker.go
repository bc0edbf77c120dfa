package clients

import (
	"context"
	"sync"
	"time"

	"github.com/dext/tap-intercom/pkg/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows requests through
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects all requests
	CircuitOpen
	// CircuitHalfOpen allows limited probe requests
	CircuitHalfOpen
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive failures
	FailureThreshold int
	// SuccessThreshold closes a half-open circuit after this many successes
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker protects the API from repeated calls during outages.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{config: config}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CircuitState {
	if cb.state == CircuitOpen && time.Since(cb.lastFailure) >= cb.config.Timeout {
		cb.state = CircuitHalfOpen
		cb.successes = 0
	}
	return cb.state
}

// Execute runs fn under circuit breaker protection.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	if cb.stateLocked() == CircuitOpen {
		cb.mu.Unlock()
		return errors.New(errors.ErrorTypeConnection, "circuit breaker is open")
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
		return err
	}

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	default:
		cb.failures = 0
	}
	return nil
}
