package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventMetadata carries cross-service tracing identifiers. CorrelationID ties
// every event in one logical flow together; CausationID is the event that
// directly caused this one.
type EventMetadata struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	CausationID   uuid.UUID `json:"causation_id"`
}

// DomainEvent represents a fact that occurred inside an aggregate. Events are
// appended to the aggregate's pending list on mutation and only published
// after the owning transaction commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() TenantID
	Metadata() EventMetadata
}

// BaseDomainEvent provides the envelope fields shared by all domain events.
// Concrete events embed it and add their payload fields.
type BaseDomainEvent struct {
	ID            uuid.UUID     `json:"event_id"`
	Type          string        `json:"event_type"`
	Timestamp     time.Time     `json:"occurred_at"`
	AggID         uuid.UUID     `json:"aggregate_id"`
	AggType       string        `json:"aggregate_type"`
	TenantIDValue TenantID      `json:"tenant_id"`
	Meta          EventMetadata `json:"metadata"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }

// EventType returns the type discriminator of the event
func (e *BaseDomainEvent) EventType() string { return e.Type }

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string { return e.AggType }

// TenantID returns the owning tenant
func (e *BaseDomainEvent) TenantID() TenantID { return e.TenantIDValue }

// Metadata returns the correlation metadata
func (e *BaseDomainEvent) Metadata() EventMetadata { return e.Meta }

// NewBaseDomainEvent creates a new base domain event. The correlation id is
// initialized to the event's own id; callers propagating an existing flow
// should follow up with Correlate.
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, tenantID TenantID) BaseDomainEvent {
	id := uuid.New()
	return BaseDomainEvent{
		ID:            id,
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Meta: EventMetadata{
			CorrelationID: id,
			CausationID:   id,
		},
	}
}

// Correlate stamps the event as part of an existing flow: it inherits the
// cause's correlation id and records the cause's event id as causation.
func (e *BaseDomainEvent) Correlate(cause DomainEvent) {
	e.Meta.CorrelationID = cause.Metadata().CorrelationID
	e.Meta.CausationID = cause.EventID()
}
