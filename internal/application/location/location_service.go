package location

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
)

// LocationService manages the storage location catalog of a tenant.
type LocationService struct {
	locations location.LocationRepository
	logger    *zap.Logger
}

func NewLocationService(locations location.LocationRepository, logger *zap.Logger) *LocationService {
	return &LocationService{locations: locations, logger: logger}
}

// CreateLocationInput carries the fields for a new storage location.
type CreateLocationInput struct {
	Code     string `json:"code" binding:"required"`
	Zone     string `json:"zone" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
}

// CreateLocation registers a new storage bin. Codes are unique per tenant.
func (s *LocationService) CreateLocation(ctx context.Context, tenantID shared.TenantID, input CreateLocationInput) (*location.Location, error) {
	existing, err := s.locations.FindByCode(ctx, tenantID, input.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("LOCATION_CODE_TAKEN", "Location code is already in use")
	}

	loc, err := location.NewLocation(tenantID, input.Code, input.Zone, input.Capacity)
	if err != nil {
		return nil, err
	}
	if err := s.locations.Save(ctx, tenantID, loc); err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("tenant_id", string(tenantID)),
		zap.String("code", loc.Code),
		zap.String("zone", loc.Zone),
	)
	return loc, nil
}

// Deactivate takes a location out of service. Occupied locations are rejected.
func (s *LocationService) Deactivate(ctx context.Context, tenantID shared.TenantID, locationID uuid.UUID) error {
	loc, err := s.locations.FindByID(ctx, tenantID, locationID)
	if err != nil {
		return err
	}
	if err := loc.Deactivate(); err != nil {
		return err
	}
	return s.locations.Save(ctx, tenantID, loc)
}

// FindByID loads a single location.
func (s *LocationService) FindByID(ctx context.Context, tenantID shared.TenantID, locationID uuid.UUID) (*location.Location, error) {
	return s.locations.FindByID(ctx, tenantID, locationID)
}

// FindByCode loads a location by its tenant-unique code.
func (s *LocationService) FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*location.Location, error) {
	return s.locations.FindByCode(ctx, tenantID, code)
}

// FindAvailableInZone lists active locations with free capacity in a zone.
func (s *LocationService) FindAvailableInZone(ctx context.Context, tenantID shared.TenantID, zone string, filter shared.Filter) ([]location.Location, error) {
	return s.locations.FindAvailableInZone(ctx, tenantID, zone, filter)
}
