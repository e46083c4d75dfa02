package stock

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeInbound    MovementType = "INBOUND"
	MovementTypePutaway    MovementType = "PUTAWAY"
	MovementTypePick       MovementType = "PICK"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// StockMovement is an append-only record of a physical stock change, derived
// from stock item mutations. Movements are never updated after creation.
type StockMovement struct {
	shared.BaseEntity
	TenantID       shared.TenantID `gorm:"type:varchar(64);not null;index"`
	StockItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MovementType   MovementType    `gorm:"size:16;not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FromLocationID *uuid.UUID      `gorm:"type:uuid"`
	ToLocationID   *uuid.UUID      `gorm:"type:uuid"`
	Reference      string          `gorm:"size:128"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement records a physical stock change
func NewStockMovement(tenantID shared.TenantID, stockItemID uuid.UUID, movementType MovementType, quantity decimal.Decimal, from, to *uuid.UUID, reference string) *StockMovement {
	return &StockMovement{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		StockItemID:    stockItemID,
		MovementType:   movementType,
		Quantity:       quantity,
		FromLocationID: from,
		ToLocationID:   to,
		Reference:      reference,
	}
}
