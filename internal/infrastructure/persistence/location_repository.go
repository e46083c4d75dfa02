package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
)

// GormLocationRepository implements location.LocationRepository on top of
// the tenant Router.
type GormLocationRepository struct {
	router *Router
	outbox shared.OutboxEventSaver
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(router *Router, outbox shared.OutboxEventSaver) *GormLocationRepository {
	return &GormLocationRepository{router: router, outbox: outbox}
}

// FindByID finds a location by ID in the tenant's schema
func (r *GormLocationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*location.Location, error) {
	var loc location.Location
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.First(&loc, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// FindByCode finds a location by its code
func (r *GormLocationRepository) FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*location.Location, error) {
	var loc location.Location
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Where("code = ?", code).First(&loc).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// FindAvailableInZone finds active locations with free capacity in a zone
func (r *GormLocationRepository) FindAvailableInZone(ctx context.Context, tenantID shared.TenantID, zone string, filter shared.Filter) ([]location.Location, error) {
	var locs []location.Location
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return applyFilter(db.Model(&location.Location{}), filter).
			Where("zone = ? AND active AND occupied < capacity", zone).
			Find(&locs).Error
	})
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// Exists reports whether a location exists
func (r *GormLocationRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.router.Run(ctx, tenantID, func(db *gorm.DB) error {
		return db.Model(&location.Location{}).Where("id = ?", id).Count(&count).Error
	})
	return count > 0, err
}

// Save persists the location and its pending events atomically, with the
// same insert-vs-update pre-check and versioned update as every aggregate.
func (r *GormLocationRepository) Save(ctx context.Context, tenantID shared.TenantID, loc *location.Location) error {
	events := loc.GetDomainEvents()

	err := r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&location.Location{}).Where("id = ?", loc.ID).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Create(loc).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&location.Location{}).
				Where("id = ? AND version = ?", loc.ID, loc.Version-1).
				Updates(map[string]interface{}{
					"occupied":   loc.Occupied,
					"occupants":  loc.Occupants,
					"active":     loc.Active,
					"version":    loc.Version,
					"updated_at": loc.UpdatedAt,
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

	loc.ClearDomainEvents()
	return nil
}

// Delete removes a location
func (r *GormLocationRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	return r.router.RunInTransaction(ctx, tenantID, func(tx *gorm.DB) error {
		result := tx.Delete(&location.Location{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ location.LocationRepository = (*GormLocationRepository)(nil)
