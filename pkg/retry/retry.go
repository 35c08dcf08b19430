// Package retry implements the pipeline's transient/fatal error classifier
// and exponential-backoff retry wrapper (component C3 of the spec).
// Grounded on the teacher's pkg/agent/resilience retry client and its
// llmerrors classification table, collapsed to the single policy the
// pipeline driver needs: classify, then retry with base·2^(attempt-1) delay.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// transientMarkers are the substrings spec.md §4.2 lists as retryable.
var transientMarkers = []string{ //nolint:gochecknoglobals
	"rate limit",
	"Too Many Requests",
	"Response failed",
	"network error",
	"timed out",
	"ETIMEDOUT",
	"ECONNRESET",
}

// StatusCoder is implemented by errors that carry an HTTP-like status code,
// such as the LLM backend's ModelError.
type StatusCoder interface {
	StatusCode() int
}

// IsTransient classifies err per spec.md §4.2: transient iff its model-layer
// status is 429, or its message contains one of the known markers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() == 429 {
		return true
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Config controls one retry sequence's attempt count and backoff base.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is multiplied by 2^(attempt-1) for attempt = 1..MaxAttempts-1.
	BaseDelay time.Duration
}

// Attempt records one try's outcome, surfaced to callers that want to log
// or emit events per attempt.
type Attempt struct {
	Number int
	Err    error
}

// Do runs fn up to cfg.MaxAttempts times, retrying only errors IsTransient
// classifies as retryable. See DoWithClassifier for callers that need a
// broader or domain-specific retry predicate.
func Do(ctx context.Context, cfg Config, onAttempt func(Attempt), fn func(ctx context.Context) error) error {
	return DoWithClassifier(ctx, cfg, IsTransient, onAttempt, fn)
}

// DoWithClassifier runs fn up to cfg.MaxAttempts times. Between attempts it
// sleeps base·2^(attempt-1), honoring ctx cancellation. An error for which
// isRetryable returns false propagates immediately without further retries;
// a nil isRetryable falls back to IsTransient. onAttempt, if non-nil, is
// called after every failed attempt (including the final one) before Do
// returns or sleeps.
//
// This lets a caller retry on its own domain-specific failures (e.g. an
// LLM's structured output failing validation) in addition to the usual
// transient-transport-error set, without loosening IsTransient itself.
func DoWithClassifier(ctx context.Context, cfg Config, isRetryable func(error) bool, onAttempt func(Attempt), fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if isRetryable == nil {
		isRetryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if onAttempt != nil {
			onAttempt(Attempt{Number: attempt, Err: lastErr})
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
