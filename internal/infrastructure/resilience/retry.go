package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// PermanentError wraps an error that retrying can never fix, such as an
// authentication failure or a missing resource. Retry returns it unwrapped
// after the first attempt.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RetrySettings bounds Retry.
type RetrySettings struct {
	// MaxRetries is the number of attempts after the first call.
	MaxRetries int
	// BaseBackoff is doubled per attempt, with up to 10% jitter.
	BaseBackoff time.Duration
}

func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		MaxRetries:  2,
		BaseBackoff: 200 * time.Millisecond,
	}
}

// Retry runs fn, retrying transient failures with exponential backoff.
// Permanent errors and context cancellation stop immediately.
func Retry(ctx context.Context, settings RetrySettings, fn func(ctx context.Context) error) error {
	if settings.MaxRetries < 0 {
		settings.MaxRetries = 0
	}
	if settings.BaseBackoff <= 0 {
		settings.BaseBackoff = DefaultRetrySettings().BaseBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= settings.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff(settings.BaseBackoff, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var permanent *PermanentError
		if errors.As(lastErr, &permanent) {
			return permanent.Err
		}
	}
	return lastErr
}

func retryBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base)/10 + 1))
	return backoff + jitter
}
