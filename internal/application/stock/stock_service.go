package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// StockService exposes the stock item operations behind the HTTP surface.
// Optimistic lock conflicts are not retried here: interactive callers get
// the conflict back and decide whether to re-submit against fresh state.
type StockService struct {
	items       stock.StockItemRepository
	movements   stock.StockMovementRepository
	allocations stock.StockAllocationRepository
	locations   location.LocationRepository
	threshold   decimal.Decimal
	logger      *zap.Logger
}

func NewStockService(
	items stock.StockItemRepository,
	movements stock.StockMovementRepository,
	allocations stock.StockAllocationRepository,
	locations location.LocationRepository,
	logger *zap.Logger,
) *StockService {
	return &StockService{
		items:       items,
		movements:   movements,
		allocations: allocations,
		locations:   locations,
		threshold:   decimal.NewFromInt(10),
		logger:      logger,
	}
}

// WithLowStockThreshold overrides the default alert threshold.
func (s *StockService) WithLowStockThreshold(threshold decimal.Decimal) *StockService {
	s.threshold = threshold
	return s
}

// ReceiveStock creates a stock item for goods that arrived outside the
// consignment flow, e.g. a manual receipt.
func (s *StockService) ReceiveStock(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, productCode, batchNumber string, quantity decimal.Decimal, expiryDate *time.Time) (*stock.StockItem, error) {
	item, err := stock.NewStockItem(tenantID, productID, productCode, batchNumber, quantity, expiryDate)
	if err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, tenantID, item); err != nil {
		return nil, err
	}

	// The journal doubles as the audit trail, so a receipt that cannot be
	// journaled is not a completed receipt.
	movement := stock.NewStockMovement(tenantID, item.ID, stock.MovementTypeInbound, quantity, nil, nil, batchNumber)
	if err := s.movements.Append(ctx, tenantID, movement); err != nil {
		return nil, fmt.Errorf("failed to journal inbound movement: %w", err)
	}

	s.logger.Info("stock received",
		zap.String("stock_item_id", item.ID.String()),
		zap.String("batch_number", batchNumber),
	)
	return item, nil
}

// AssignLocation stores a stock item at a location. Capacity is checked
// up front for a fast rejection; the occupancy invariant itself is enforced
// when the location aggregate consumes the resulting event.
func (s *StockService) AssignLocation(ctx context.Context, tenantID shared.TenantID, stockItemID, locationID uuid.UUID) error {
	loc, err := s.locations.FindByID(ctx, tenantID, locationID)
	if err != nil {
		return err
	}
	if !loc.HasCapacity() {
		return shared.ErrInsufficientCapacity
	}

	item, err := s.items.FindByID(ctx, tenantID, stockItemID)
	if err != nil {
		return err
	}
	if item.IsAssignedTo(locationID) {
		return nil
	}
	if err := item.AssignLocation(locationID); err != nil {
		return err
	}
	return s.items.Save(ctx, tenantID, item)
}

// ReleaseLocation removes a stock item from its location.
func (s *StockService) ReleaseLocation(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID) error {
	item, err := s.items.FindByID(ctx, tenantID, stockItemID)
	if err != nil {
		return err
	}
	if err := item.ReleaseLocation(); err != nil {
		return err
	}
	return s.items.Save(ctx, tenantID, item)
}

// Allocate reserves quantity on a stock item for an order line. The
// allocation record per order line is the idempotency guard: re-running the
// same request returns the existing reservation instead of doubling it.
func (s *StockService) Allocate(ctx context.Context, tenantID shared.TenantID, orderID, orderLineID, stockItemID uuid.UUID, quantity decimal.Decimal) (*stock.StockAllocation, error) {
	existing, err := s.allocations.FindByOrderLine(ctx, tenantID, orderLineID, stockItemID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != stock.AllocationStatusReleased {
		return existing, nil
	}

	item, err := s.items.FindByID(ctx, tenantID, stockItemID)
	if err != nil {
		return nil, err
	}
	if err := item.Allocate(quantity, orderLineID); err != nil {
		return nil, err
	}

	allocation, err := stock.NewStockAllocation(tenantID, orderID, orderLineID, stockItemID, quantity)
	if err != nil {
		return nil, err
	}

	s.maybeAlertLowStock(tenantID, item)
	if err := s.items.Save(ctx, tenantID, item); err != nil {
		return nil, err
	}
	if err := s.allocations.Save(ctx, tenantID, allocation); err != nil {
		return nil, err
	}
	return allocation, nil
}

// ReleaseAllocation returns a reservation to the available pool.
func (s *StockService) ReleaseAllocation(ctx context.Context, tenantID shared.TenantID, allocationID uuid.UUID) error {
	allocation, err := s.allocations.FindByID(ctx, tenantID, allocationID)
	if err != nil {
		return err
	}
	if allocation.Status == stock.AllocationStatusReleased {
		return nil
	}

	item, err := s.items.FindByID(ctx, tenantID, allocation.StockItemID)
	if err != nil {
		return err
	}
	if err := item.ReleaseAllocation(allocation.Quantity, allocation.OrderLineID); err != nil {
		return err
	}
	if err := allocation.Release(); err != nil {
		return err
	}

	if err := s.items.Save(ctx, tenantID, item); err != nil {
		return err
	}
	return s.allocations.Save(ctx, tenantID, allocation)
}

// AdjustQuantity applies a stock-count correction and journals it.
func (s *StockService) AdjustQuantity(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID, newQuantity decimal.Decimal, reason string) error {
	item, err := s.items.FindByID(ctx, tenantID, stockItemID)
	if err != nil {
		return err
	}
	oldQuantity := item.Quantity
	if err := item.AdjustQuantity(newQuantity, reason); err != nil {
		return err
	}
	s.maybeAlertLowStock(tenantID, item)
	if err := s.items.Save(ctx, tenantID, item); err != nil {
		return err
	}

	movement := stock.NewStockMovement(tenantID, item.ID, stock.MovementTypeAdjustment, newQuantity.Sub(oldQuantity), item.LocationID, item.LocationID, reason)
	if err := s.movements.Append(ctx, tenantID, movement); err != nil {
		return fmt.Errorf("failed to journal adjustment: %w", err)
	}

	return nil
}

// FindByID returns a single stock item.
func (s *StockService) FindByID(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID) (*stock.StockItem, error) {
	return s.items.FindByID(ctx, tenantID, stockItemID)
}

// ListByProduct returns the stock items of a product.
func (s *StockService) ListByProduct(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, filter shared.Filter) ([]stock.StockItem, error) {
	return s.items.FindByProduct(ctx, tenantID, productID, filter)
}

// Movements returns the movement journal of a stock item.
func (s *StockService) Movements(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, error) {
	return s.movements.FindByStockItem(ctx, tenantID, stockItemID, filter)
}

// maybeAlertLowStock stages a LowStockAlert on the aggregate when available
// quantity has dropped under the threshold. Staged before Save, the alert
// reaches the outbox in the same transaction as the quantity change.
func (s *StockService) maybeAlertLowStock(tenantID shared.TenantID, item *stock.StockItem) {
	if item.AvailableQuantity().GreaterThanOrEqual(s.threshold) {
		return
	}
	item.AddDomainEvent(stock.NewLowStockAlertEvent(tenantID, item.ProductID, item.AvailableQuantity(), s.threshold))
}
