package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrySettings() RetrySettings {
	return RetrySettings{MaxRetries: 2, BaseBackoff: time.Millisecond}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetrySettings(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetrySettings(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	boom := errors.New("still broken")
	calls := 0
	err := Retry(context.Background(), fastRetrySettings(), func(context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	denied := errors.New("unauthorized")
	calls := 0
	err := Retry(context.Background(), fastRetrySettings(), func(context.Context) error {
		calls++
		return Permanent(denied)
	})

	require.ErrorIs(t, err, denied)
	assert.Equal(t, 1, calls)

	// The permanent wrapper is stripped before returning.
	var permanent *PermanentError
	assert.False(t, errors.As(err, &permanent))
}

func TestRetry_ContextCancellationStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetrySettings{MaxRetries: 3, BaseBackoff: time.Hour}, func(context.Context) error {
		return errors.New("flaky")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
