package location

import (
	"context"

	"github.com/wms/backend/internal/domain/shared"
)

// LocationRepository persists locations in the owning tenant's schema
type LocationRepository interface {
	shared.Repository[Location]
	FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*Location, error)
	FindAvailableInZone(ctx context.Context, tenantID shared.TenantID, zone string, filter shared.Filter) ([]Location, error)
}
