package event

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// ConflictRetryConfig bounds optimistic lock retries inside event handlers.
type ConflictRetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

func DefaultConflictRetryConfig() ConflictRetryConfig {
	return ConflictRetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 100 * time.Millisecond,
	}
}

// ErrConflictRetriesExhausted reports that every bounded attempt lost the
// optimistic concurrency race. Callers treat it as transient so the message
// is redelivered rather than dropped.
var ErrConflictRetriesExhausted = errors.New("optimistic lock conflict retries exhausted")

// RetryOnConflict runs fn up to cfg.MaxAttempts times, retrying only on
// shared.ErrOptimisticLockConflict. fn must re-read the aggregate at its
// current version on every attempt; replaying a stale in-memory copy would
// just lose the same race again. Any other error aborts immediately.
func RetryOnConflict(ctx context.Context, cfg ConflictRetryConfig, logger *zap.Logger, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConflictRetryConfig().MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultConflictRetryConfig().BaseBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, shared.ErrOptimisticLockConflict) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := conflictBackoff(cfg.BaseBackoff, attempt)
		logger.Debug("optimistic lock conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return errors.Join(ErrConflictRetriesExhausted, lastErr)
}

// conflictBackoff doubles the base delay per attempt and adds jitter of up
// to 10% of the base so competing consumers desynchronize.
func conflictBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base)/10 + 1))
	return backoff + jitter
}
