package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	// OutboxStatusAcked means every subscribed handler reached a durable
	// decision (applied, skipped, or terminally rejected) for this entry.
	// Acked entries are never redelivered to this consumer group.
	OutboxStatusAcked  OutboxStatus = "ACKED"
	OutboxStatusFailed OutboxStatus = "FAILED"
	OutboxStatusDead   OutboxStatus = "DEAD"
)

// Default redelivery configuration for transient dispatch failures
const (
	DefaultMaxRedeliveries = 5
	DefaultBaseBackoff     = time.Second
)

// OutboxEntry is a domain event persisted for reliable at-least-once
// delivery. It is written in the same transaction as the aggregate it
// belongs to and dispatched by a background processor after commit.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      TenantID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	CorrelationID uuid.UUID
	CausationID   uuid.UUID
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	AckedAt       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a new outbox entry for a domain event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		CorrelationID: event.Metadata().CorrelationID,
		CausationID:   event.Metadata().CausationID,
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRedeliveries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanRetry returns true if the entry is eligible for redelivery
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing marks the entry as claimed by a dispatcher
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkAcked records that the entry's effect (or considered non-effect) is
// durable. This is the sole commit boundary for consumption.
func (e *OutboxEntry) MarkAcked() {
	now := time.Now()
	e.Status = OutboxStatusAcked
	e.AckedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a transient dispatch failure and schedules the next
// redelivery with exponential backoff. Exhausting MaxRetries parks the entry
// as DEAD for operator inspection.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}

	e.Status = OutboxStatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
	next := time.Now().Add(backoff)
	e.NextRetryAt = &next
}

// IsDead returns true if the entry has been parked
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// ResetForRetry returns a parked entry to the dispatch queue with a fresh
// redelivery budget. Only DEAD entries can be reset.
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only reset dead entries")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entry *OutboxEntry) error
	SaveInTx(ctx context.Context, txProvider interface{}, entries ...*OutboxEntry) error
	Update(ctx context.Context, entry *OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	FindRetryable(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing atomically claims the given entries and returns the ones
	// actually claimed, so concurrent dispatchers never double-deliver a batch.
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
