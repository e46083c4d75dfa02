package location

import (
	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// AggregateTypeLocation is the aggregate type discriminator for locations
const AggregateTypeLocation = "Location"

// Event type constants
const (
	EventTypeLocationOccupied = "LocationOccupied"
	EventTypeLocationVacated  = "LocationVacated"
)

// LocationOccupiedEvent is raised when a slot is claimed
type LocationOccupiedEvent struct {
	shared.BaseDomainEvent
	LocationID  uuid.UUID `json:"location_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Occupied    int       `json:"occupied"`
	Capacity    int       `json:"capacity"`
}

// NewLocationOccupiedEvent creates a new LocationOccupiedEvent
func NewLocationOccupiedEvent(l *Location, stockItemID uuid.UUID) *LocationOccupiedEvent {
	return &LocationOccupiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationOccupied, AggregateTypeLocation, l.ID, l.TenantID),
		LocationID:      l.ID,
		StockItemID:     stockItemID,
		Occupied:        l.Occupied,
		Capacity:        l.Capacity,
	}
}

// EventType returns the event type name
func (e *LocationOccupiedEvent) EventType() string { return EventTypeLocationOccupied }

// LocationVacatedEvent is raised when a slot is freed
type LocationVacatedEvent struct {
	shared.BaseDomainEvent
	LocationID  uuid.UUID `json:"location_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Occupied    int       `json:"occupied"`
}

// NewLocationVacatedEvent creates a new LocationVacatedEvent
func NewLocationVacatedEvent(l *Location, stockItemID uuid.UUID) *LocationVacatedEvent {
	return &LocationVacatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationVacated, AggregateTypeLocation, l.ID, l.TenantID),
		LocationID:      l.ID,
		StockItemID:     stockItemID,
		Occupied:        l.Occupied,
	}
}

// EventType returns the event type name
func (e *LocationVacatedEvent) EventType() string { return EventTypeLocationVacated }
