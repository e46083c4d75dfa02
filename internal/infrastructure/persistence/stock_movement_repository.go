package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

// GormStockMovementRepository implements the append-only movement journal.
// Movements have no version: they are never updated after creation.
type GormStockMovementRepository struct {
	router *Router
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(router *Router) *GormStockMovementRepository {
	return &GormStockMovementRepository{router: router}
}

// Append records a movement in the tenant's schema
func (r *GormStockMovementRepository) Append(ctx context.Context, tenantID shared.TenantID, movement *stock.StockMovement) error {
	return r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		return tx.Create(movement).Error
	})
}

// FindByReference looks up a movement by reference, served by the index on
// the reference column
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, tenantID shared.TenantID, reference string) (*stock.StockMovement, error) {
	var movement stock.StockMovement
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Where("reference = ?", reference).First(&movement).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByStockItem lists movements for a stock item
func (r *GormStockMovementRepository) FindByStockItem(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return applyFilter(db.Model(&stock.StockMovement{}), filter).
			Where("stock_item_id = ?", stockItemID).
			Find(&movements).Error
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
