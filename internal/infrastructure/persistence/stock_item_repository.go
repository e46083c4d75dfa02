package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// GormStockItemRepository implements stock.StockItemRepository on top of the
// tenant Router. Every call is routed to the caller's tenant schema; writes
// persist pending domain events to the outbox in the same transaction.
type GormStockItemRepository struct {
	router *Router
	outbox shared.OutboxEventSaver
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(router *Router, outbox shared.OutboxEventSaver) *GormStockItemRepository {
	return &GormStockItemRepository{router: router, outbox: outbox}
}

// FindByID finds a stock item by ID in the tenant's schema
func (r *GormStockItemRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockItem, error) {
	var item stock.StockItem
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.First(&item, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByProduct finds stock items for a product
func (r *GormStockItemRepository) FindByProduct(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, filter shared.Filter) ([]stock.StockItem, error) {
	var items []stock.StockItem
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return applyFilter(db.Model(&stock.StockItem{}), filter).
			Where("product_id = ?", productID).
			Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindByBatch finds the stock item for a product batch
func (r *GormStockItemRepository) FindByBatch(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, batchNumber string) (*stock.StockItem, error) {
	var item stock.StockItem
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Where("product_id = ? AND batch_number = ?", productID, batchNumber).
			First(&item).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindExpiringBefore finds items whose expiry date is on or before the
// cutoff and that have not yet been classified EXPIRED.
func (r *GormStockItemRepository) FindExpiringBefore(ctx context.Context, tenantID shared.TenantID, cutoff time.Time, filter shared.Filter) ([]stock.StockItem, error) {
	var items []stock.StockItem
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return applyFilter(db.Model(&stock.StockItem{}), filter).
			Where("expiry_date IS NOT NULL AND expiry_date <= ? AND expiry_class <> ?", cutoff, stock.ExpiryClassExpired).
			Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Exists reports whether a stock item exists. Existence checks are cheap and
// high-churn; the cache decorator never caches them.
func (r *GormStockItemRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Model(&stock.StockItem{}).Where("id = ?", id).Count(&count).Error
	})
	return count > 0, err
}

// Save persists the stock item and its pending events atomically. An
// existence pre-check distinguishes insert from update so the optimistic-lock
// version is honored rather than overwritten; a versioned update that affects
// zero rows lost a concurrent race and reports ErrOptimisticLockConflict.
func (r *GormStockItemRepository) Save(ctx context.Context, tenantID shared.TenantID, item *stock.StockItem) error {
	events := item.GetDomainEvents()

	err := r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&stock.StockItem{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&stock.StockItem{}).
				Where("id = ? AND version = ?", item.ID, item.Version-1).
				Updates(map[string]interface{}{
					"quantity":           item.Quantity,
					"allocated_quantity": item.AllocatedQuantity,
					"expiry_class":       item.ExpiryClass,
					"location_id":        item.LocationID,
					"status":             item.Status,
					"version":            item.Version,
					"updated_at":         item.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrOptimisticLockConflict
			}
		}

		if r.outbox != nil && len(events) > 0 {
			return r.outbox.SaveEvents(ctx, tx, events...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	item.ClearDomainEvents()
	return nil
}

// Delete removes a stock item
func (r *GormStockItemRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	return r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		result := tx.Delete(&stock.StockItem{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter applies pagination and ordering to list queries
func applyFilter(db *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	orderBy := filter.OrderBy
	if !isSortableColumn(orderBy) {
		orderBy = "created_at"
	}
	dir := "DESC"
	if filter.OrderDir == "asc" {
		dir = "ASC"
	}
	return db.
		Order(orderBy + " " + dir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize)
}

// isSortableColumn allow-lists order columns so filters can never smuggle
// arbitrary SQL into ORDER BY.
func isSortableColumn(column string) bool {
	switch column {
	case "created_at", "updated_at", "expiry_date", "quantity", "batch_number", "code", "zone":
		return true
	}
	return false
}

var _ stock.StockItemRepository = (*GormStockItemRepository)(nil)
