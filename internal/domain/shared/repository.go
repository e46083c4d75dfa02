package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base interface for tenant-scoped repositories. Every
// operation takes the caller's tenant explicitly; implementations verify it
// against the tenant bound in the context before touching storage.
type Repository[T any] interface {
	FindByID(ctx context.Context, tenantID TenantID, id uuid.UUID) (*T, error)
	Save(ctx context.Context, tenantID TenantID, entity *T) error
	Delete(ctx context.Context, tenantID TenantID, id uuid.UUID) error
	Exists(ctx context.Context, tenantID TenantID, id uuid.UUID) (bool, error)
}

// Filter represents query filter options for list operations
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}
