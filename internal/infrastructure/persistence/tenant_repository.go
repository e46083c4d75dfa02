package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/tenant"
)

// GormTenantRepository persists the tenant registry. The registry always
// lives in the public schema and is the one repository that does not route
// through a tenant scope.
type GormTenantRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormTenantRepository {
	return &GormTenantRepository{db: db, outbox: outbox}
}

// FindBySlug finds a tenant registry row by its slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug shared.TenantID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Save persists the tenant row and its pending events atomically
func (r *GormTenantRepository) Save(ctx context.Context, t *tenant.Tenant) error {
	events := t.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tenant.Tenant{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Create(t).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&tenant.Tenant{}).
				Where("id = ? AND version = ?", t.ID, t.Version-1).
				Updates(map[string]interface{}{
					"name":       t.Name,
					"status":     t.Status,
					"version":    t.Version,
					"updated_at": t.UpdatedAt,
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

	t.ClearDomainEvents()
	return nil
}

// ListActive returns the slugs of all tenants currently serving traffic
func (r *GormTenantRepository) ListActive(ctx context.Context) ([]shared.TenantID, error) {
	var slugs []shared.TenantID
	err := r.db.WithContext(ctx).
		Model(&tenant.Tenant{}).
		Where("status = ?", tenant.StatusActive).
		Order("slug ASC").
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, err
	}
	return slugs, nil
}

var _ tenant.Repository = (*GormTenantRepository)(nil)
