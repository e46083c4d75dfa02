package event

import (
	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/domain/tenant"
)

// NewDomainEventSerializer returns a serializer with every domain event
// variant registered. Adding a new event type means adding a line here;
// unregistered types are skipped by consumers, not guessed at.
func NewDomainEventSerializer() *EventSerializer {
	s := NewEventSerializer()

	Register[stock.StockItemCreatedEvent](s, stock.EventTypeStockItemCreated)
	Register[stock.StockItemExpiredEvent](s, stock.EventTypeStockItemExpired)
	Register[stock.LocationAssignedEvent](s, stock.EventTypeLocationAssigned)
	Register[stock.LocationReleasedEvent](s, stock.EventTypeLocationReleased)
	Register[stock.StockAllocatedEvent](s, stock.EventTypeStockAllocated)
	Register[stock.AllocationReleasedEvent](s, stock.EventTypeAllocationReleased)
	Register[stock.StockQuantityAdjustedEvent](s, stock.EventTypeStockQuantityAdjusted)
	Register[stock.LowStockAlertEvent](s, stock.EventTypeLowStockAlert)
	Register[stock.ConsignmentAcceptedEvent](s, stock.EventTypeConsignmentAccepted)

	Register[location.LocationOccupiedEvent](s, location.EventTypeLocationOccupied)
	Register[location.LocationVacatedEvent](s, location.EventTypeLocationVacated)

	Register[tenant.TenantActivatedEvent](s, tenant.EventTypeTenantActivated)

	return s
}
