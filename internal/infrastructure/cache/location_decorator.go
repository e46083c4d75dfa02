package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
)

// NamespaceLocation prefixes cached locations.
const NamespaceLocation = "location"

// CachedLocationRepository decorates a LocationRepository the same way
// CachedStockItemRepository does stock items: cache-aside reads by ID,
// write-through on save, zone scans bypassing the cache.
type CachedLocationRepository struct {
	inner  location.LocationRepository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedLocationRepository(inner location.LocationRepository, store Store, ttl time.Duration, logger *zap.Logger) *CachedLocationRepository {
	return &CachedLocationRepository{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedLocationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*location.Location, error) {
	key := Key(NamespaceLocation, tenantID, id.String())

	if data, err := r.store.Get(ctx, key); err == nil {
		var loc location.Location
		if err := json.Unmarshal(data, &loc); err == nil {
			return &loc, nil
		}
		r.evict(ctx, key)
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to store",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	loc, err := r.inner.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, loc)
	return loc, nil
}

func (r *CachedLocationRepository) Save(ctx context.Context, tenantID shared.TenantID, loc *location.Location) error {
	if err := r.inner.Save(ctx, tenantID, loc); err != nil {
		return err
	}
	r.fill(ctx, Key(NamespaceLocation, tenantID, loc.ID.String()), loc)
	return nil
}

func (r *CachedLocationRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	if err := r.inner.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	r.evict(ctx, Key(NamespaceLocation, tenantID, id.String()))
	return nil
}

func (r *CachedLocationRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	return r.inner.Exists(ctx, tenantID, id)
}

func (r *CachedLocationRepository) FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*location.Location, error) {
	return r.inner.FindByCode(ctx, tenantID, code)
}

func (r *CachedLocationRepository) FindAvailableInZone(ctx context.Context, tenantID shared.TenantID, zone string, filter shared.Filter) ([]location.Location, error) {
	return r.inner.FindAvailableInZone(ctx, tenantID, zone, filter)
}

func (r *CachedLocationRepository) fill(ctx context.Context, key string, loc *location.Location) {
	data, err := json.Marshal(loc)
	if err != nil {
		r.logger.Warn("failed to encode location for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedLocationRepository) evict(ctx context.Context, key string) {
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

var _ location.LocationRepository = (*CachedLocationRepository)(nil)
