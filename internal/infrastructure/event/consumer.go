package event

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// Disposition is the durable outcome of consuming a single message. Every
// disposition acknowledges the message; transient failures return an error
// instead, which leaves the message unacked for redelivery.
type Disposition string

const (
	// DispositionApplied means at least one handler mutated local state.
	DispositionApplied Disposition = "APPLIED"
	// DispositionSkipped covers benign no-ops: unrecognized event types on a
	// shared stream, duplicate deliveries, and events with no subscribers.
	DispositionSkipped Disposition = "SKIPPED"
	// DispositionFailedTerminal means a handler rejected the event for a
	// business reason that redelivery can never fix. The rejection is logged
	// and the message acked so it stops consuming the partition.
	DispositionFailedTerminal Disposition = "FAILED_TERMINAL"
	// DispositionConflictExhausted means a handler lost the optimistic lock
	// race on every bounded attempt. The aggregate's own state is the source
	// of truth and a later event or read reconciles it, so the message is
	// acked rather than redelivered; unbounded retry would stall the
	// partition.
	DispositionConflictExhausted Disposition = "CONFLICT_EXHAUSTED"
)

// Consumer runs the per-message consumption pipeline: classify, decode,
// deduplicate, dispatch to handlers with bounded conflict retry, and decide
// a disposition. It never acks; the dispatcher owns the ack after Consume
// returns a disposition.
type Consumer struct {
	registry    *HandlerRegistry
	serializer  *EventSerializer
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	retryConfig ConflictRetryConfig
	logger      *zap.Logger
}

func NewConsumer(
	registry *HandlerRegistry,
	serializer *EventSerializer,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		registry:    registry,
		serializer:  serializer,
		idempotency: idempotency,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		retryConfig: DefaultConflictRetryConfig(),
		logger:      logger,
	}
}

// WithIdempotencyConfig overrides the dedup window.
func (c *Consumer) WithIdempotencyConfig(cfg shared.IdempotencyConfig) *Consumer {
	c.idemConfig = cfg
	return c
}

// WithConflictRetryConfig overrides the optimistic lock retry bounds.
func (c *Consumer) WithConflictRetryConfig(cfg ConflictRetryConfig) *Consumer {
	c.retryConfig = cfg
	return c
}

// Consume processes one outbox entry end to end. A nil error means the
// returned disposition is durable and the entry must be acked. A non-nil
// error means the failure is transient and the entry must be redelivered.
func (c *Consumer) Consume(ctx context.Context, entry *shared.OutboxEntry) (Disposition, error) {
	log := c.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("tenant_id", string(entry.TenantID)),
	)

	eventType, ok := c.classify(entry)
	if !ok {
		log.Warn("message carries no recognizable type discriminator, skipping")
		return DispositionSkipped, nil
	}
	log = log.With(zap.String("event_type", eventType))

	if !c.serializer.IsRegistered(eventType) {
		log.Debug("event type not consumed by this service, skipping")
		return DispositionSkipped, nil
	}

	handlers := c.registry.HandlersFor(eventType)
	if len(handlers) == 0 {
		log.Debug("no handlers subscribed, skipping")
		return DispositionSkipped, nil
	}

	event, err := c.serializer.Deserialize(eventType, entry.Payload)
	if err != nil {
		if errors.Is(err, shared.ErrEventTypeUnrecognized) {
			log.Debug("event type not in decoder registry, skipping")
			return DispositionSkipped, nil
		}
		// A payload that cannot decode will not decode on redelivery either.
		log.Error("undecodable payload, rejecting terminally", zap.Error(err))
		return DispositionFailedTerminal, nil
	}

	if c.idemConfig.Enabled {
		processed, err := c.idempotency.IsProcessed(ctx, entry.EventID.String())
		if err != nil {
			// Processing a duplicate is recoverable through handler-level
			// idempotency probes; dropping an event is not.
			log.Warn("idempotency check failed, processing anyway", zap.Error(err))
		} else if processed {
			log.Debug("duplicate delivery, skipping")
			return DispositionSkipped, nil
		}
	}

	disposition, err := c.dispatch(ctx, log, handlers, event)
	if err != nil {
		return "", err
	}

	if c.idemConfig.Enabled {
		// Recorded only after the disposition is reached, so a transient
		// failure above still redelivers instead of deduping itself away.
		if _, err := c.idempotency.MarkProcessed(ctx, entry.EventID.String(), c.idemConfig.TTL); err != nil {
			log.Warn("failed to record idempotency key", zap.Error(err))
		}
	}
	return disposition, nil
}

// dispatch invokes every subscribed handler. Optimistic lock conflicts are
// retried in place with backoff; domain rejections are terminal; anything
// else is transient and forces redelivery of the whole message.
func (c *Consumer) dispatch(ctx context.Context, log *zap.Logger, handlers []shared.EventHandler, event shared.DomainEvent) (Disposition, error) {
	disposition := DispositionApplied
	for _, handler := range handlers {
		err := RetryOnConflict(ctx, c.retryConfig, log, func(ctx context.Context) error {
			return c.handleSafely(ctx, handler, event)
		})
		if err == nil {
			continue
		}

		var domainErr *shared.DomainError
		switch {
		case errors.As(err, &domainErr):
			log.Warn("handler rejected event terminally",
				zap.String("code", domainErr.Code),
				zap.String("reason", domainErr.Message),
			)
			disposition = DispositionFailedTerminal
		case errors.Is(err, ErrConflictRetriesExhausted):
			// High-concurrency signal, not a failure to recover from.
			log.Warn("conflict retries exhausted, acking under contention", zap.Error(err))
			disposition = DispositionConflictExhausted
		default:
			return "", err
		}
	}
	return disposition, nil
}

// handleSafely converts a handler panic into a transient error so one bad
// message cannot take down a partition worker.
func (c *Consumer) handleSafely(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = errors.New("handler panic")
		}
	}()
	return handler.Handle(ctx, event)
}

// classify resolves the event type, preferring the outbox column written by
// the producer and falling back to discriminators embedded in the payload.
func (c *Consumer) classify(entry *shared.OutboxEntry) (string, bool) {
	headers := map[string]string{}
	if entry.EventType != "" {
		headers[HeaderEventType] = entry.EventType
	}
	return Classify(headers, entry.Payload)
}
