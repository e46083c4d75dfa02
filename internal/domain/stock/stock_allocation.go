package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// AllocationStatus represents the lifecycle of a stock allocation
type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "PENDING"
	AllocationStatusConfirmed AllocationStatus = "CONFIRMED"
	AllocationStatusReleased  AllocationStatus = "RELEASED"
)

// StockAllocation links an order line to a reserved quantity on a stock
// item. It is rebuilt from picking events and versioned for optimistic
// concurrency like every other aggregate.
type StockAllocation struct {
	shared.TenantAggregateRoot
	OrderID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderLineID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_allocation_line_item,priority:1"`
	StockItemID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_allocation_line_item,priority:2"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Status      AllocationStatus `gorm:"size:16;not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (StockAllocation) TableName() string {
	return "stock_allocations"
}

// NewStockAllocation reserves a quantity of a stock item for an order line
func NewStockAllocation(tenantID shared.TenantID, orderID, orderLineID, stockItemID uuid.UUID, quantity decimal.Decimal) (*StockAllocation, error) {
	if orderLineID == uuid.Nil || stockItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ALLOCATION", "Order line and stock item are required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}
	return &StockAllocation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderID:             orderID,
		OrderLineID:         orderLineID,
		StockItemID:         stockItemID,
		Quantity:            quantity,
		Status:              AllocationStatusPending,
	}, nil
}

// Confirm marks the allocation as picked
func (a *StockAllocation) Confirm() error {
	if a.Status != AllocationStatusPending {
		return shared.ErrInvalidState
	}
	a.Status = AllocationStatusConfirmed
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Release returns the allocation to the available pool
func (a *StockAllocation) Release() error {
	if a.Status == AllocationStatusReleased {
		return shared.ErrInvalidState
	}
	a.Status = AllocationStatusReleased
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}
