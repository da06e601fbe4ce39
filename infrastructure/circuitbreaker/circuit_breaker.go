package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrOpen is returned by Execute while the circuit for a key is open
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// CircuitBreaker implements the circuit breaker pattern per key (a webhook
// URL for reminder delivery)
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time

	failures    map[string]int
	lastFailure map[string]time.Time
	state       map[string]State
	mu          sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       logger,
		now:          time.Now,
		failures:     make(map[string]int),
		lastFailure:  make(map[string]time.Time),
		state:        make(map[string]State),
	}
}

// IsOpen checks if the circuit is open for a given key. An open circuit
// whose reset timeout has elapsed moves to half-open and lets one call through.
func (cb *CircuitBreaker) IsOpen(key string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen(key)
}

// isOpen must be called with the lock held
func (cb *CircuitBreaker) isOpen(key string) bool {
	if cb.state[key] != StateOpen {
		return false
	}
	if lastFail, ok := cb.lastFailure[key]; ok && cb.now().Sub(lastFail) > cb.resetTimeout {
		cb.state[key] = StateHalfOpen
		cb.logger.Info("Circuit breaker half-open", zap.String("key", key))
		return false
	}
	return true
}

// Execute runs fn unless the circuit is open, and records its outcome
func (cb *CircuitBreaker) Execute(key string, fn func() error) error {
	if cb.IsOpen(key) {
		return fmt.Errorf("%w for %s", ErrOpen, key)
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailure(key)
	} else {
		cb.recordSuccess(key)
	}
	return err
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordSuccess(key)
}

func (cb *CircuitBreaker) recordSuccess(key string) {
	delete(cb.failures, key)
	delete(cb.lastFailure, key)

	if cb.state[key] == StateHalfOpen {
		cb.logger.Info("Circuit breaker closed", zap.String("key", key))
	}
	delete(cb.state, key)
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordFailure(key)
}

func (cb *CircuitBreaker) recordFailure(key string) {
	cb.failures[key]++
	cb.lastFailure[key] = cb.now()

	if cb.state[key] == StateHalfOpen || cb.failures[key] >= cb.maxFailures {
		if cb.state[key] != StateOpen {
			cb.logger.Warn("Circuit breaker opened",
				zap.String("key", key),
				zap.Int("failures", cb.failures[key]))
		}
		cb.state[key] = StateOpen
	}
}

// GetState returns the current state for a key
func (cb *CircuitBreaker) GetState(key string) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if state, ok := cb.state[key]; ok {
		return state
	}
	return StateClosed
}

// GetFailureCount returns the current failure count for a key
func (cb *CircuitBreaker) GetFailureCount(key string) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures[key]
}

// Reset forgets everything known about a key
func (cb *CircuitBreaker) Reset(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.failures, key)
	delete(cb.lastFailure, key)
	delete(cb.state, key)
}
