package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event. Returning ErrOptimisticLockConflict
	// marks the attempt retryable; a DomainError marks it terminal; any other
	// error is treated as transient by the dispatcher.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice means the handler receives all events.
	EventTypes() []string
}

// OutboxEventSaver saves domain events to the outbox within a transaction.
// Repositories use it to implement the transactional outbox pattern: events
// become durable atomically with the aggregate write and are delivered by a
// background dispatcher after commit.
type OutboxEventSaver interface {
	// SaveEvents saves domain events within the current transaction.
	// The txProvider is a *gorm.DB transaction.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
