package stock

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// ConsignmentAcceptedHandler derives stock items from accepted consignments.
// Product codes are resolved through the product service before any local
// write, so an unavailable product service soft-fails the whole message and
// redelivery picks it up once the dependency recovers.
type ConsignmentAcceptedHandler struct {
	items     stock.StockItemRepository
	movements stock.StockMovementRepository
	products  stock.ProductResolver
	logger    *zap.Logger
}

func NewConsignmentAcceptedHandler(
	items stock.StockItemRepository,
	movements stock.StockMovementRepository,
	products stock.ProductResolver,
	logger *zap.Logger,
) *ConsignmentAcceptedHandler {
	return &ConsignmentAcceptedHandler{
		items:     items,
		movements: movements,
		products:  products,
		logger:    logger,
	}
}

func (h *ConsignmentAcceptedHandler) EventTypes() []string {
	return []string{stock.EventTypeConsignmentAccepted}
}

func (h *ConsignmentAcceptedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	accepted, ok := event.(*stock.ConsignmentAcceptedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			stock.EventTypeConsignmentAccepted, event.EventType())
	}

	tenantID := event.TenantID()
	log := h.logger.With(
		zap.String("consignment_id", accepted.ConsignmentID.String()),
		zap.String("tenant_id", string(tenantID)),
	)

	// Resolve every code first. Mixing remote lookups into the per-line
	// writes would leave a half-received consignment behind a soft failure.
	refs := make([]*stock.ProductRef, len(accepted.Lines))
	for i, line := range accepted.Lines {
		ref, err := h.products.ResolveCode(ctx, tenantID, line.ProductCode)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// A code the product service does not know will not appear
				// on redelivery either.
				return shared.NewDomainError("UNKNOWN_PRODUCT",
					fmt.Sprintf("product code %s is not registered", line.ProductCode))
			}
			return err
		}
		refs[i] = ref
	}

	for i, line := range accepted.Lines {
		if err := h.receiveLine(ctx, tenantID, refs[i], line, log); err != nil {
			return err
		}
	}
	return nil
}

// receiveLine creates the stock item for one consignment line. The batch
// keyed by (product, batch number) is the per-line idempotency probe: a
// redelivered consignment skips lines that already materialized.
func (h *ConsignmentAcceptedHandler) receiveLine(ctx context.Context, tenantID shared.TenantID, ref *stock.ProductRef, line stock.ConsignmentLine, log *zap.Logger) error {
	existing, err := h.items.FindByBatch(ctx, tenantID, ref.ID, line.BatchNumber)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil {
		log.Debug("consignment line already received, skipping",
			zap.String("product_code", line.ProductCode),
			zap.String("batch_number", line.BatchNumber),
		)
		// An earlier delivery may have failed between the item save and the
		// journal write.
		return h.ensureJournaled(ctx, tenantID, existing, line)
	}

	item, err := stock.NewStockItem(tenantID, ref.ID, line.ProductCode, line.BatchNumber, line.Quantity, line.ExpiryDate)
	if err != nil {
		return err
	}
	if err := h.items.Save(ctx, tenantID, item); err != nil {
		return err
	}

	// The journal doubles as the audit trail. Failing here redelivers the
	// message; the batch check skips the item and ensureJournaled finishes
	// the write.
	movement := stock.NewStockMovement(tenantID, item.ID, stock.MovementTypeInbound, line.Quantity, nil, nil, line.BatchNumber)
	if err := h.movements.Append(ctx, tenantID, movement); err != nil {
		return fmt.Errorf("failed to journal inbound movement: %w", err)
	}

	log.Info("consignment line received",
		zap.String("stock_item_id", item.ID.String()),
		zap.String("product_code", line.ProductCode),
		zap.String("batch_number", line.BatchNumber),
	)
	return nil
}

// ensureJournaled backfills the inbound movement for a stock item that
// materialized on a delivery that failed before its journal write.
func (h *ConsignmentAcceptedHandler) ensureJournaled(ctx context.Context, tenantID shared.TenantID, item *stock.StockItem, line stock.ConsignmentLine) error {
	movements, err := h.movements.FindByStockItem(ctx, tenantID, item.ID, shared.DefaultFilter())
	if err != nil {
		return err
	}
	for _, m := range movements {
		if m.MovementType == stock.MovementTypeInbound {
			return nil
		}
	}
	movement := stock.NewStockMovement(tenantID, item.ID, stock.MovementTypeInbound, line.Quantity, nil, nil, line.BatchNumber)
	return h.movements.Append(ctx, tenantID, movement)
}

var _ shared.EventHandler = (*ConsignmentAcceptedHandler)(nil)
