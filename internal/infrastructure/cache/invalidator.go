package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/domain/tenant"
)

// Invalidator is a wildcard event handler that evicts exactly the cache
// entries an event invalidates. Selectivity matters: a LowStockAlert is a
// pure notification and must not flush anything, while a quantity adjustment
// only touches one stock item.
//
// Invalidation failures are logged and swallowed. The decorators' TTLs bound
// staleness, and failing the event (forcing redelivery) for a cache hiccup
// would be worse than serving a briefly stale read.
type Invalidator struct {
	store  Store
	logger *zap.Logger
}

func NewInvalidator(store Store, logger *zap.Logger) *Invalidator {
	return &Invalidator{store: store, logger: logger}
}

// EventTypes returns nil: the invalidator observes every event and decides
// per type what, if anything, to evict.
func (i *Invalidator) EventTypes() []string { return nil }

func (i *Invalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenantID := event.TenantID()
	aggregateID := event.AggregateID().String()

	switch event.EventType() {
	case stock.EventTypeStockItemCreated,
		stock.EventTypeStockItemExpired,
		stock.EventTypeLocationAssigned,
		stock.EventTypeLocationReleased,
		stock.EventTypeStockAllocated,
		stock.EventTypeAllocationReleased,
		stock.EventTypeStockQuantityAdjusted:
		i.evict(ctx, Key(NamespaceStockItem, tenantID, aggregateID))

	case location.EventTypeLocationOccupied,
		location.EventTypeLocationVacated:
		i.evict(ctx, Key(NamespaceLocation, tenantID, aggregateID))

	case tenant.EventTypeTenantActivated:
		// A newly activated tenant starts from an empty cache.
		i.evictPrefix(ctx, TenantPrefix(NamespaceStockItem, tenantID))
		i.evictPrefix(ctx, TenantPrefix(NamespaceLocation, tenantID))

	case stock.EventTypeLowStockAlert, stock.EventTypeConsignmentAccepted:
		// Notifications and process triggers mutate no cached entity.
	}

	return nil
}

func (i *Invalidator) evict(ctx context.Context, key string) {
	if err := i.store.Delete(ctx, key); err != nil {
		i.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (i *Invalidator) evictPrefix(ctx context.Context, prefix string) {
	if err := i.store.DeleteByPrefix(ctx, prefix); err != nil {
		i.logger.Warn("cache prefix invalidation failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

var _ shared.EventHandler = (*Invalidator)(nil)
