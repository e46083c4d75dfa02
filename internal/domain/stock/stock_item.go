package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// ExpiryClass is the first-expire-first-out rotation class of a stock item.
type ExpiryClass string

const (
	ExpiryClassOK      ExpiryClass = "OK"
	ExpiryClassWarning ExpiryClass = "WARNING"
	ExpiryClassExpired ExpiryClass = "EXPIRED"
)

// ExpiryWarningWindow is how far ahead of the expiry date an item is
// reclassified as WARNING for rotation purposes.
const ExpiryWarningWindow = 14 * 24 * time.Hour

// StockItemStatus represents the lifecycle state of a stock item
type StockItemStatus string

const (
	StockItemStatusReceived StockItemStatus = "RECEIVED"
	StockItemStatusStored   StockItemStatus = "STORED"
	StockItemStatusConsumed StockItemStatus = "CONSUMED"
)

// StockItem is the aggregate root for a received batch of a product. It owns
// its location assignment, allocation bookkeeping and expiry classification.
// All mutations go through aggregate methods, which bump the optimistic-lock
// version and enqueue domain events.
type StockItem struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode       string          `gorm:"size:64;not null;index"`
	BatchNumber       string          `gorm:"size:64;not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AllocatedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpiryDate        *time.Time
	ExpiryClass       ExpiryClass     `gorm:"size:16;not null;default:'OK'"`
	LocationID        *uuid.UUID      `gorm:"type:uuid;index"`
	Status            StockItemStatus `gorm:"size:16;not null;default:'RECEIVED'"`
}

// TableName returns the table name for GORM
func (StockItem) TableName() string {
	return "stock_items"
}

// NewStockItem creates a stock item for a received consignment line.
func NewStockItem(tenantID shared.TenantID, productID uuid.UUID, productCode, batchNumber string, quantity decimal.Decimal, expiryDate *time.Time) (*StockItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	item := &StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		ProductCode:         productCode,
		BatchNumber:         batchNumber,
		Quantity:            quantity,
		AllocatedQuantity:   decimal.Zero,
		ExpiryDate:          expiryDate,
		ExpiryClass:         classifyExpiry(expiryDate, time.Now()),
		Status:              StockItemStatusReceived,
	}
	item.AddDomainEvent(NewStockItemCreatedEvent(item))
	return item, nil
}

// AvailableQuantity returns the quantity not yet allocated to orders
func (s *StockItem) AvailableQuantity() decimal.Decimal {
	return s.Quantity.Sub(s.AllocatedQuantity)
}

// IsExpired reports whether the item is past its expiry date
func (s *StockItem) IsExpired() bool {
	return s.ExpiryClass == ExpiryClassExpired
}

// IsAssignedTo reports whether the item is already stored at the given
// location. Event handlers use it as their idempotency check before
// re-applying a location assignment.
func (s *StockItem) IsAssignedTo(locationID uuid.UUID) bool {
	return s.LocationID != nil && *s.LocationID == locationID
}

// AssignLocation stores the item at a location. Expired stock can never be
// put away; that rejection is deterministic and must not be retried.
func (s *StockItem) AssignLocation(locationID uuid.UUID) error {
	if locationID == uuid.Nil {
		return shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if s.IsExpired() {
		return shared.NewDomainError("STOCK_EXPIRED", "Cannot assign location to expired stock")
	}
	if s.Status == StockItemStatusConsumed {
		return shared.ErrInvalidState
	}

	previous := s.LocationID
	s.LocationID = &locationID
	s.Status = StockItemStatusStored
	s.touch()

	s.AddDomainEvent(NewLocationAssignedEvent(s, locationID, previous))
	return nil
}

// ReleaseLocation removes the item from its current location
func (s *StockItem) ReleaseLocation() error {
	if s.LocationID == nil {
		return shared.NewDomainError("NOT_STORED", "Stock item has no assigned location")
	}

	released := *s.LocationID
	s.LocationID = nil
	s.Status = StockItemStatusReceived
	s.touch()

	s.AddDomainEvent(NewLocationReleasedEvent(s, released))
	return nil
}

// Allocate reserves a quantity for an order line
func (s *StockItem) Allocate(quantity decimal.Decimal, orderLineID uuid.UUID) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}
	if s.IsExpired() {
		return shared.NewDomainError("STOCK_EXPIRED", "Cannot allocate expired stock")
	}
	if s.AvailableQuantity().LessThan(quantity) {
		return shared.ErrInsufficientStock
	}

	s.AllocatedQuantity = s.AllocatedQuantity.Add(quantity)
	s.touch()

	s.AddDomainEvent(NewStockAllocatedEvent(s, quantity, orderLineID))
	return nil
}

// ReleaseAllocation returns a previously allocated quantity to the pool
func (s *StockItem) ReleaseAllocation(quantity decimal.Decimal, orderLineID uuid.UUID) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if s.AllocatedQuantity.LessThan(quantity) {
		return shared.NewDomainError("INVALID_RELEASE", "Cannot release more than allocated")
	}

	s.AllocatedQuantity = s.AllocatedQuantity.Sub(quantity)
	s.touch()

	s.AddDomainEvent(NewAllocationReleasedEvent(s, quantity, orderLineID))
	return nil
}

// AdjustQuantity corrects the on-hand quantity, e.g. after a stock count
func (s *StockItem) AdjustQuantity(newQuantity decimal.Decimal, reason string) error {
	if newQuantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if newQuantity.LessThan(s.AllocatedQuantity) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot drop below allocated quantity")
	}

	old := s.Quantity
	s.Quantity = newQuantity
	s.touch()

	s.AddDomainEvent(NewStockQuantityAdjustedEvent(s, old, newQuantity, reason))
	return nil
}

// ReclassifyExpiry recomputes the rotation class against the given time.
// Emits StockItemExpired when the item crosses into EXPIRED.
func (s *StockItem) ReclassifyExpiry(now time.Time) {
	newClass := classifyExpiry(s.ExpiryDate, now)
	if newClass == s.ExpiryClass {
		return
	}

	s.ExpiryClass = newClass
	s.touch()

	if newClass == ExpiryClassExpired {
		s.AddDomainEvent(NewStockItemExpiredEvent(s))
	}
}

func (s *StockItem) touch() {
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

func classifyExpiry(expiryDate *time.Time, now time.Time) ExpiryClass {
	if expiryDate == nil {
		return ExpiryClassOK
	}
	switch {
	case !expiryDate.After(now):
		return ExpiryClassExpired
	case expiryDate.Sub(now) <= ExpiryWarningWindow:
		return ExpiryClassWarning
	default:
		return ExpiryClassOK
	}
}
