package tenant

import (
	"context"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// Status represents the provisioning lifecycle of a tenant
type Status string

const (
	StatusProvisioning Status = "PROVISIONING"
	StatusActive       Status = "ACTIVE"
	StatusSuspended    Status = "SUSPENDED"
)

// Tenant is a registry row in the public schema. Activation triggers lazy
// provisioning of the tenant's dedicated schema on first data access.
type Tenant struct {
	shared.BaseAggregateRoot
	Slug   shared.TenantID `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name   string          `gorm:"size:128;not null"`
	Status Status          `gorm:"size:16;not null;default:'PROVISIONING'"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// New registers a tenant in PROVISIONING state
func New(slug shared.TenantID, name string) (*Tenant, error) {
	if err := slug.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Slug:              slug,
		Name:              name,
		Status:            StatusProvisioning,
	}, nil
}

// Activate marks the tenant ready for traffic and emits TenantActivated
func (t *Tenant) Activate() error {
	if t.Status == StatusActive {
		return shared.ErrInvalidState
	}
	t.Status = StatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantActivatedEvent(t))
	return nil
}

// Suspend takes the tenant out of service
func (t *Tenant) Suspend() error {
	if t.Status != StatusActive {
		return shared.ErrInvalidState
	}
	t.Status = StatusSuspended
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// Repository persists tenant registry rows. The registry always lives in the
// public schema, never in a tenant schema.
type Repository interface {
	FindBySlug(ctx context.Context, slug shared.TenantID) (*Tenant, error)
	Save(ctx context.Context, t *Tenant) error
	ListActive(ctx context.Context) ([]shared.TenantID, error)
}
