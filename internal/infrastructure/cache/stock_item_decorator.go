package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// NamespaceStockItem prefixes cached stock items.
const NamespaceStockItem = "stockitem"

// CachedStockItemRepository decorates a StockItemRepository with a
// tenant-keyed read-through cache. FindByID is cache-aside; Save and Delete
// write through after the authoritative write succeeds. List queries and
// existence checks always bypass the cache: they are paginated and ordered,
// and serving them stale would break allocation decisions.
//
// The cache is strictly an optimization. A failing cache degrades to the
// inner repository and is logged, never surfaced to callers.
type CachedStockItemRepository struct {
	inner  stock.StockItemRepository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStockItemRepository(inner stock.StockItemRepository, store Store, ttl time.Duration, logger *zap.Logger) *CachedStockItemRepository {
	return &CachedStockItemRepository{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedStockItemRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockItem, error) {
	key := Key(NamespaceStockItem, tenantID, id.String())

	if data, err := r.store.Get(ctx, key); err == nil {
		var item stock.StockItem
		if err := json.Unmarshal(data, &item); err == nil {
			return &item, nil
		}
		// Undecodable entries are stale schema leftovers; drop and refill.
		r.evict(ctx, key)
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to store",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	item, err := r.inner.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, item)
	return item, nil
}

// Save writes through: the cache is refreshed only after the authoritative
// write commits, so a failed save never leaves a phantom entry.
func (r *CachedStockItemRepository) Save(ctx context.Context, tenantID shared.TenantID, item *stock.StockItem) error {
	if err := r.inner.Save(ctx, tenantID, item); err != nil {
		return err
	}
	r.fill(ctx, Key(NamespaceStockItem, tenantID, item.ID.String()), item)
	return nil
}

func (r *CachedStockItemRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	if err := r.inner.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	r.evict(ctx, Key(NamespaceStockItem, tenantID, id.String()))
	return nil
}

func (r *CachedStockItemRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	return r.inner.Exists(ctx, tenantID, id)
}

func (r *CachedStockItemRepository) FindByProduct(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, filter shared.Filter) ([]stock.StockItem, error) {
	return r.inner.FindByProduct(ctx, tenantID, productID, filter)
}

func (r *CachedStockItemRepository) FindByBatch(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, batchNumber string) (*stock.StockItem, error) {
	return r.inner.FindByBatch(ctx, tenantID, productID, batchNumber)
}

func (r *CachedStockItemRepository) FindExpiringBefore(ctx context.Context, tenantID shared.TenantID, cutoff time.Time, filter shared.Filter) ([]stock.StockItem, error) {
	return r.inner.FindExpiringBefore(ctx, tenantID, cutoff, filter)
}

func (r *CachedStockItemRepository) fill(ctx context.Context, key string, item *stock.StockItem) {
	data, err := json.Marshal(item)
	if err != nil {
		r.logger.Warn("failed to encode stock item for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedStockItemRepository) evict(ctx context.Context, key string) {
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

var _ stock.StockItemRepository = (*CachedStockItemRepository)(nil)
