package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// AssignmentHandler keeps location occupancy consistent with stock putaway.
// It consumes LocationAssigned and LocationReleased from the stock side and
// applies Occupy/Vacate to the location aggregates.
//
// Replay safety comes from the aggregates themselves: locations track their
// occupant items, so Occupy and Vacate no-op when the item already holds or
// already freed its slot. A movement journaled with the event ID as its
// reference marks full application; redelivery after a partial failure
// re-runs the no-op mutations and finishes the journal write.
type AssignmentHandler struct {
	locations location.LocationRepository
	movements stock.StockMovementRepository
	logger    *zap.Logger
}

func NewAssignmentHandler(locations location.LocationRepository, movements stock.StockMovementRepository, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		locations: locations,
		movements: movements,
		logger:    logger,
	}
}

func (h *AssignmentHandler) EventTypes() []string {
	return []string{stock.EventTypeLocationAssigned, stock.EventTypeLocationReleased}
}

func (h *AssignmentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *stock.LocationAssignedEvent:
		return h.handleAssigned(ctx, e)
	case *stock.LocationReleasedEvent:
		return h.handleReleased(ctx, e)
	default:
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}
}

func (h *AssignmentHandler) handleAssigned(ctx context.Context, e *stock.LocationAssignedEvent) error {
	tenantID := e.TenantID()

	applied, err := h.alreadyApplied(ctx, tenantID, e.EventID())
	if err != nil {
		return err
	}
	if applied {
		h.logger.Debug("location assignment already applied, skipping",
			zap.String("event_id", e.EventID().String()),
		)
		return nil
	}

	loc, err := h.locations.FindByID(ctx, tenantID, e.LocationID)
	if err != nil {
		return err
	}
	if !loc.OccupiedBy(e.StockItemID) {
		if err := loc.Occupy(e.StockItemID); err != nil {
			// Capacity and inactive-location rejections are deterministic
			// business failures; surface them as terminal.
			return err
		}
		if err := h.locations.Save(ctx, tenantID, loc); err != nil {
			return err
		}
	}

	// Moving between bins frees the previous one.
	if e.PreviousLocationID != nil && *e.PreviousLocationID != e.LocationID {
		if err := h.vacate(ctx, tenantID, *e.PreviousLocationID, e.StockItemID); err != nil {
			return err
		}
	}

	movement := stock.NewStockMovement(tenantID, e.StockItemID, stock.MovementTypePutaway, e.Quantity, e.PreviousLocationID, &e.LocationID, e.EventID().String())
	if err := h.movements.Append(ctx, tenantID, movement); err != nil {
		return err
	}

	h.logger.Info("location occupied",
		zap.String("location_id", e.LocationID.String()),
		zap.String("stock_item_id", e.StockItemID.String()),
	)
	return nil
}

func (h *AssignmentHandler) handleReleased(ctx context.Context, e *stock.LocationReleasedEvent) error {
	tenantID := e.TenantID()

	applied, err := h.alreadyApplied(ctx, tenantID, e.EventID())
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	if err := h.vacate(ctx, tenantID, e.LocationID, e.StockItemID); err != nil {
		return err
	}

	movement := stock.NewStockMovement(tenantID, e.StockItemID, stock.MovementTypePick, e.Quantity, &e.LocationID, nil, e.EventID().String())
	return h.movements.Append(ctx, tenantID, movement)
}

func (h *AssignmentHandler) vacate(ctx context.Context, tenantID shared.TenantID, locationID, stockItemID uuid.UUID) error {
	loc, err := h.locations.FindByID(ctx, tenantID, locationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("location to vacate no longer exists",
				zap.String("location_id", locationID.String()),
			)
			return nil
		}
		return err
	}
	if !loc.OccupiedBy(stockItemID) {
		// Already freed on an earlier delivery.
		return nil
	}
	if err := loc.Vacate(stockItemID); err != nil {
		return err
	}
	return h.locations.Save(ctx, tenantID, loc)
}

// alreadyApplied reports whether a movement journaled under this event ID
// exists.
func (h *AssignmentHandler) alreadyApplied(ctx context.Context, tenantID shared.TenantID, eventID uuid.UUID) (bool, error) {
	_, err := h.movements.FindByReference(ctx, tenantID, eventID.String())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ shared.EventHandler = (*AssignmentHandler)(nil)
