package llmrt

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState mirrors the teacher's three-state breaker, generalized from
// wrapping a single LLMClient to wrapping any Backend.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig tunes failure/recovery thresholds for one backend.
type CircuitBreakerConfig struct {
	FailureThreshold   int
	SuccessThreshold   int
	Timeout            time.Duration
	MaxConcurrentCalls int
}

// DefaultCircuitBreakerConfig matches the teacher's defaults, which tolerate
// a handful of transient model-API blips before cutting a stage off.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	FailureThreshold:   5,
	SuccessThreshold:   3,
	Timeout:            30 * time.Second,
	MaxConcurrentCalls: 3,
}

// CircuitBreakerError is returned by CircuitBreaker.Allow when the breaker
// is open or the half-open probe slots are exhausted.
type CircuitBreakerError struct {
	State CircuitState
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("llm circuit breaker is %s", e.State)
}

// CircuitBreaker wraps any Backend's call sites with the closed/open/half-open
// state machine. Unlike the teacher's CircuitBreakerClient, it does not
// implement Backend itself — Invoke calls Allow/Record directly around
// backend.Send so the breaker's state can be inspected independently of any
// one in-flight invocation.
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	halfOpenCalls   int
	lastFailureTime time.Time
}

// NewCircuitBreaker constructs a breaker in the closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: cfg, state: CircuitClosed}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// once the cooldown timeout has elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.Timeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCalls = 1
			cb.successCount = 0
			return nil
		}
		return &CircuitBreakerError{State: CircuitOpen}
	case CircuitHalfOpen:
		if cb.halfOpenCalls >= cb.config.MaxConcurrentCalls {
			return &CircuitBreakerError{State: CircuitHalfOpen}
		}
		cb.halfOpenCalls++
		return nil
	default:
		return &CircuitBreakerError{State: cb.state}
	}
}

// Record feeds the outcome of one Allow-gated call back into the breaker.
func (cb *CircuitBreaker) Record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.halfOpenCalls--
	}
	if success {
		cb.onSuccess()
	} else {
		cb.onFailure()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.successCount = 0
	}
}

// State returns the breaker's current state for observability.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
