package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient_NilError(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_Markers(t *testing.T) {
	cases := []string{
		"rate limit exceeded",
		"429 Too Many Requests",
		"Response failed with unknown error",
		"network error while dialing",
		"request timed out",
		"dial tcp: ETIMEDOUT",
		"read: ECONNRESET",
	}
	for _, msg := range cases {
		assert.True(t, IsTransient(errors.New(msg)), "expected %q to classify as transient", msg)
	}
}

func TestIsTransient_NonTransient(t *testing.T) {
	assert.False(t, IsTransient(errors.New("invalid api key")), "expected auth-shaped error to be non-transient")
}

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) StatusCode() int { return e.code }

func TestIsTransient_StatusCode429(t *testing.T) {
	assert.True(t, IsTransient(&statusErr{code: 429}), "expected 429 status error to be transient")
	assert.False(t, IsTransient(&statusErr{code: 500}), "expected non-429 status error to be classified by message only")
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil,
		func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("rate limit hit")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil,
		func(context.Context) error {
			attempts++
			return errors.New("network error")
		})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, BaseDelay: time.Millisecond}, nil,
		func(context.Context) error {
			attempts++
			return errors.New("invalid api key")
		})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "expected exactly 1 attempt for non-transient error")
}

func TestDo_RecordsAttempts(t *testing.T) {
	var seen []Attempt
	_ = Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(a Attempt) { seen = append(seen, a) },
		func(context.Context) error { return errors.New("timed out") })

	require.Len(t, seen, 3)
	assert.Equal(t, 1, seen[0].Number)
	assert.Equal(t, 3, seen[2].Number)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil,
		func(context.Context) error { return nil })
	require.Error(t, err, "expected error for cancelled context")
}

func TestDoWithClassifier_RetriesErrorsTheCustomPredicateAccepts(t *testing.T) {
	attempts := 0
	isRetryable := func(err error) bool { return err.Error() == "validation failed" }
	err := DoWithClassifier(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, isRetryable, nil,
		func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("validation failed")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoWithClassifier_RejectsErrorsTheCustomPredicateRejects(t *testing.T) {
	attempts := 0
	isRetryable := func(err error) bool { return err.Error() == "validation failed" }
	err := DoWithClassifier(context.Background(), Config{MaxAttempts: 5, BaseDelay: time.Millisecond}, isRetryable, nil,
		func(context.Context) error {
			attempts++
			return errors.New("some other error")
		})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "expected exactly 1 attempt for a predicate-rejected error")
}

func TestDoWithClassifier_NilPredicateFallsBackToIsTransient(t *testing.T) {
	attempts := 0
	err := DoWithClassifier(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil, nil,
		func(context.Context) error {
			attempts++
			return errors.New("invalid api key")
		})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "expected IsTransient's non-transient classification with a nil predicate")
}
