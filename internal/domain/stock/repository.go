package stock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// StockItemRepository persists stock items in the owning tenant's schema
type StockItemRepository interface {
	shared.Repository[StockItem]
	FindByProduct(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, filter shared.Filter) ([]StockItem, error)
	FindByBatch(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, batchNumber string) (*StockItem, error)
	// FindExpiringBefore returns items whose expiry date falls on or before
	// the cutoff and that are not yet classified EXPIRED.
	FindExpiringBefore(ctx context.Context, tenantID shared.TenantID, cutoff time.Time, filter shared.Filter) ([]StockItem, error)
}

// StockMovementRepository persists the append-only movement journal
type StockMovementRepository interface {
	Append(ctx context.Context, tenantID shared.TenantID, movement *StockMovement) error
	FindByStockItem(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID, filter shared.Filter) ([]StockMovement, error)
	// FindByReference looks up a movement by its reference, typically the
	// event ID it was journaled under. Returns shared.ErrNotFound when no
	// such movement exists.
	FindByReference(ctx context.Context, tenantID shared.TenantID, reference string) (*StockMovement, error)
}

// StockAllocationRepository persists stock allocations
type StockAllocationRepository interface {
	shared.Repository[StockAllocation]
	FindByOrderLine(ctx context.Context, tenantID shared.TenantID, orderLineID, stockItemID uuid.UUID) (*StockAllocation, error)
	FindByOrder(ctx context.Context, tenantID shared.TenantID, orderID uuid.UUID) ([]StockAllocation, error)
}

// ProductRef is the product service's answer to a code lookup. The product
// service owns product identity; the stock service only consumes it.
type ProductRef struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// ProductResolver resolves product codes against the product service. The
// lookup is a synchronous cross-service call; implementations wrap it with a
// circuit breaker and return shared.ErrDownstreamUnavailable on open circuit
// or retry exhaustion so handlers can fail soft.
type ProductResolver interface {
	ResolveCode(ctx context.Context, tenantID shared.TenantID, productCode string) (*ProductRef, error)
}
