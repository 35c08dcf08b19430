package llmrt

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Hour, MaxConcurrentCalls: 1})

	if err := cb.Allow(); err != nil {
		t.Fatalf("unexpected rejection while closed: %v", err)
	}
	cb.Record(false)
	if cb.State() != CircuitClosed {
		t.Fatalf("got state %s after one failure, want CLOSED", cb.State())
	}

	cb.Record(false)
	if cb.State() != CircuitOpen {
		t.Fatalf("got state %s after reaching failure threshold, want OPEN", cb.State())
	}

	if err := cb.Allow(); err == nil {
		t.Error("expected Allow to reject while open")
	}
}

func TestCircuitBreaker_HalfOpensAfterTimeoutThenClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond, MaxConcurrentCalls: 5})
	cb.Record(false)
	if cb.State() != CircuitOpen {
		t.Fatalf("got state %s, want OPEN", cb.State())
	}

	time.Sleep(5 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected the cooldown to admit a probe call: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("got state %s after cooldown, want HALF_OPEN", cb.State())
	}

	cb.Record(true)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("got state %s after one success, want HALF_OPEN (threshold is 2)", cb.State())
	}

	if err := cb.Allow(); err != nil {
		t.Fatalf("unexpected rejection for second half-open probe: %v", err)
	}
	cb.Record(true)
	if cb.State() != CircuitClosed {
		t.Fatalf("got state %s after reaching success threshold, want CLOSED", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond, MaxConcurrentCalls: 5})
	cb.Record(false)
	time.Sleep(5 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("unexpected rejection for probe: %v", err)
	}
	cb.Record(false)
	if cb.State() != CircuitOpen {
		t.Fatalf("got state %s after a half-open failure, want OPEN", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenCapsConcurrentProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 5, Timeout: time.Millisecond, MaxConcurrentCalls: 1})
	cb.Record(false)
	time.Sleep(5 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected the first probe to be admitted: %v", err)
	}
	if err := cb.Allow(); err == nil {
		t.Error("expected a second concurrent half-open probe to be rejected")
	}
}
