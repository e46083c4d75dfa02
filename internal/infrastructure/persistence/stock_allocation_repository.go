package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// GormStockAllocationRepository implements stock.StockAllocationRepository
// on top of the tenant Router.
type GormStockAllocationRepository struct {
	router *Router
	outbox shared.OutboxEventSaver
}

// NewGormStockAllocationRepository creates a new GormStockAllocationRepository
func NewGormStockAllocationRepository(router *Router, outbox shared.OutboxEventSaver) *GormStockAllocationRepository {
	return &GormStockAllocationRepository{router: router, outbox: outbox}
}

// FindByID finds an allocation by ID
func (r *GormStockAllocationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockAllocation, error) {
	var alloc stock.StockAllocation
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.First(&alloc, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &alloc, nil
}

// FindByOrderLine finds the allocation tying an order line to a stock item.
// Handlers use it as their idempotency probe before creating a duplicate.
func (r *GormStockAllocationRepository) FindByOrderLine(ctx context.Context, tenantID shared.TenantID, orderLineID, stockItemID uuid.UUID) (*stock.StockAllocation, error) {
	var alloc stock.StockAllocation
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Where("order_line_id = ? AND stock_item_id = ?", orderLineID, stockItemID).
			First(&alloc).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &alloc, nil
}

// FindByOrder finds all allocations for an order
func (r *GormStockAllocationRepository) FindByOrder(ctx context.Context, tenantID shared.TenantID, orderID uuid.UUID) ([]stock.StockAllocation, error) {
	var allocs []stock.StockAllocation
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Where("order_id = ?", orderID).Find(&allocs).Error
	})
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

// Exists reports whether an allocation exists
func (r *GormStockAllocationRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Model(&stock.StockAllocation{}).Where("id = ?", id).Count(&count).Error
	})
	return count > 0, err
}

// Save persists the allocation with insert-vs-update pre-check and
// optimistic locking.
func (r *GormStockAllocationRepository) Save(ctx context.Context, tenantID shared.TenantID, alloc *stock.StockAllocation) error {
	events := alloc.GetDomainEvents()

	err := r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&stock.StockAllocation{}).Where("id = ?", alloc.ID).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Create(alloc).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&stock.StockAllocation{}).
				Where("id = ? AND version = ?", alloc.ID, alloc.Version-1).
				Updates(map[string]interface{}{
					"quantity":   alloc.Quantity,
					"status":     alloc.Status,
					"version":    alloc.Version,
					"updated_at": alloc.UpdatedAt,
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

	alloc.ClearDomainEvents()
	return nil
}

// Delete removes an allocation
func (r *GormStockAllocationRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	return r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		result := tx.Delete(&stock.StockAllocation{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ stock.StockAllocationRepository = (*GormStockAllocationRepository)(nil)
