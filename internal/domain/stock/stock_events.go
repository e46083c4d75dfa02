package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeStockItem       = "StockItem"
	AggregateTypeStockAllocation = "StockAllocation"
)

// Event type constants
const (
	EventTypeStockItemCreated      = "StockItemCreated"
	EventTypeStockItemExpired      = "StockItemExpired"
	EventTypeLocationAssigned      = "LocationAssigned"
	EventTypeLocationReleased      = "LocationReleased"
	EventTypeStockAllocated        = "StockAllocated"
	EventTypeAllocationReleased    = "AllocationReleased"
	EventTypeStockQuantityAdjusted = "StockQuantityAdjusted"
	EventTypeLowStockAlert         = "LowStockAlert"
	EventTypeConsignmentAccepted   = "ConsignmentAccepted"
)

// StockItemCreatedEvent is raised when a consignment line becomes a stock item
type StockItemCreatedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductCode string          `json:"product_code"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// NewStockItemCreatedEvent creates a new StockItemCreatedEvent
func NewStockItemCreatedEvent(item *StockItem) *StockItemCreatedEvent {
	return &StockItemCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockItemCreated, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		ProductID:       item.ProductID,
		ProductCode:     item.ProductCode,
		BatchNumber:     item.BatchNumber,
		Quantity:        item.Quantity,
		ExpiryDate:      item.ExpiryDate,
	}
}

// EventType returns the event type name
func (e *StockItemCreatedEvent) EventType() string { return EventTypeStockItemCreated }

// StockItemExpiredEvent is raised when an item crosses into the EXPIRED class
type StockItemExpiredEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID  `json:"stock_item_id"`
	ProductID   uuid.UUID  `json:"product_id"`
	BatchNumber string     `json:"batch_number"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
}

// NewStockItemExpiredEvent creates a new StockItemExpiredEvent
func NewStockItemExpiredEvent(item *StockItem) *StockItemExpiredEvent {
	return &StockItemExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockItemExpired, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		ProductID:       item.ProductID,
		BatchNumber:     item.BatchNumber,
		ExpiryDate:      item.ExpiryDate,
		LocationID:      item.LocationID,
	}
}

// EventType returns the event type name
func (e *StockItemExpiredEvent) EventType() string { return EventTypeStockItemExpired }

// LocationAssignedEvent is raised when a stock item is stored at a location.
// Consumed by the location service to occupy the bin.
type LocationAssignedEvent struct {
	shared.BaseDomainEvent
	StockItemID        uuid.UUID       `json:"stock_item_id"`
	LocationID         uuid.UUID       `json:"location_id"`
	PreviousLocationID *uuid.UUID      `json:"previous_location_id,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
}

// NewLocationAssignedEvent creates a new LocationAssignedEvent
func NewLocationAssignedEvent(item *StockItem, locationID uuid.UUID, previous *uuid.UUID) *LocationAssignedEvent {
	return &LocationAssignedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeLocationAssigned, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:        item.ID,
		LocationID:         locationID,
		PreviousLocationID: previous,
		Quantity:           item.Quantity,
	}
}

// EventType returns the event type name
func (e *LocationAssignedEvent) EventType() string { return EventTypeLocationAssigned }

// LocationReleasedEvent is raised when a stock item leaves its location
type LocationReleasedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewLocationReleasedEvent creates a new LocationReleasedEvent
func NewLocationReleasedEvent(item *StockItem, locationID uuid.UUID) *LocationReleasedEvent {
	return &LocationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationReleased, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		LocationID:      locationID,
		Quantity:        item.Quantity,
	}
}

// EventType returns the event type name
func (e *LocationReleasedEvent) EventType() string { return EventTypeLocationReleased }

// StockAllocatedEvent is raised when stock is reserved for an order line
type StockAllocatedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	OrderLineID uuid.UUID       `json:"order_line_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// NewStockAllocatedEvent creates a new StockAllocatedEvent
func NewStockAllocatedEvent(item *StockItem, quantity decimal.Decimal, orderLineID uuid.UUID) *StockAllocatedEvent {
	return &StockAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAllocated, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		OrderLineID:     orderLineID,
		Quantity:        quantity,
		Remaining:       item.AvailableQuantity(),
	}
}

// EventType returns the event type name
func (e *StockAllocatedEvent) EventType() string { return EventTypeStockAllocated }

// AllocationReleasedEvent is raised when a reservation is returned to the pool
type AllocationReleasedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	OrderLineID uuid.UUID       `json:"order_line_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewAllocationReleasedEvent creates a new AllocationReleasedEvent
func NewAllocationReleasedEvent(item *StockItem, quantity decimal.Decimal, orderLineID uuid.UUID) *AllocationReleasedEvent {
	return &AllocationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationReleased, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		OrderLineID:     orderLineID,
		Quantity:        quantity,
	}
}

// EventType returns the event type name
func (e *AllocationReleasedEvent) EventType() string { return EventTypeAllocationReleased }

// StockQuantityAdjustedEvent is raised for stock-count corrections
type StockQuantityAdjustedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID       `json:"stock_item_id"`
	OldQuantity decimal.Decimal `json:"old_quantity"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason,omitempty"`
}

// NewStockQuantityAdjustedEvent creates a new StockQuantityAdjustedEvent
func NewStockQuantityAdjustedEvent(item *StockItem, oldQty, newQty decimal.Decimal, reason string) *StockQuantityAdjustedEvent {
	return &StockQuantityAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockQuantityAdjusted, AggregateTypeStockItem, item.ID, item.TenantID),
		StockItemID:     item.ID,
		OldQuantity:     oldQty,
		NewQuantity:     newQty,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *StockQuantityAdjustedEvent) EventType() string { return EventTypeStockQuantityAdjusted }

// LowStockAlertEvent is a pure alert raised by threshold checks. It changes
// no cached aggregate shape, so cache invalidation ignores it.
type LowStockAlertEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Available decimal.Decimal `json:"available"`
	Threshold decimal.Decimal `json:"threshold"`
}

// NewLowStockAlertEvent creates a new LowStockAlertEvent
func NewLowStockAlertEvent(tenantID shared.TenantID, productID uuid.UUID, available, threshold decimal.Decimal) *LowStockAlertEvent {
	return &LowStockAlertEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStockAlert, AggregateTypeStockItem, productID, tenantID),
		ProductID:       productID,
		Available:       available,
		Threshold:       threshold,
	}
}

// EventType returns the event type name
func (e *LowStockAlertEvent) EventType() string { return EventTypeLowStockAlert }

// ConsignmentLine is one product line of an accepted consignment
type ConsignmentLine struct {
	ProductCode string          `json:"product_code"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// ConsignmentAcceptedEvent is emitted by the receiving service when goods
// arrive. The stock service derives stock items from its lines; product codes
// are resolved to product ids through the product service before the local
// transaction opens.
type ConsignmentAcceptedEvent struct {
	shared.BaseDomainEvent
	ConsignmentID uuid.UUID         `json:"consignment_id"`
	Lines         []ConsignmentLine `json:"lines"`
}

// NewConsignmentAcceptedEvent creates a new ConsignmentAcceptedEvent
func NewConsignmentAcceptedEvent(tenantID shared.TenantID, consignmentID uuid.UUID, lines []ConsignmentLine) *ConsignmentAcceptedEvent {
	return &ConsignmentAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConsignmentAccepted, "Consignment", consignmentID, tenantID),
		ConsignmentID:   consignmentID,
		Lines:           lines,
	}
}

// EventType returns the event type name
func (e *ConsignmentAcceptedEvent) EventType() string { return EventTypeConsignmentAccepted }
