package tenant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/tenant"
)

// SchemaProvisioner prepares a tenant's dedicated schema before activation.
type SchemaProvisioner interface {
	ProvisionTenant(ctx context.Context, tenantID shared.TenantID) error
}

// TenantService onboards tenants: registry row, schema provisioning, and
// activation. Activation emits TenantActivated through the outbox so every
// consumer learns about the new tenant.
type TenantService struct {
	tenants     tenant.Repository
	provisioner SchemaProvisioner
	logger      *zap.Logger
}

func NewTenantService(tenants tenant.Repository, provisioner SchemaProvisioner, logger *zap.Logger) *TenantService {
	return &TenantService{
		tenants:     tenants,
		provisioner: provisioner,
		logger:      logger,
	}
}

// RegisterTenantInput carries the fields for tenant onboarding.
type RegisterTenantInput struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// Register onboards a new tenant. The registry row is written first in
// PROVISIONING state so a crash mid-provisioning leaves a resumable record
// rather than an activated tenant without a schema.
func (s *TenantService) Register(ctx context.Context, input RegisterTenantInput) (*tenant.Tenant, error) {
	slug := shared.TenantID(input.Slug)

	existing, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("TENANT_EXISTS", "Tenant slug is already registered")
	}

	t, err := tenant.New(slug, input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	if err := s.provisioner.ProvisionTenant(ctx, slug); err != nil {
		s.logger.Error("tenant schema provisioning failed",
			zap.String("tenant_id", string(slug)),
			zap.Error(err),
		)
		return nil, err
	}

	if err := t.Activate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant activated",
		zap.String("tenant_id", string(slug)),
		zap.String("name", t.Name),
	)
	return t, nil
}

// Activate resumes onboarding for a tenant stuck in PROVISIONING, or
// reactivates a suspended tenant. The schema is re-verified first.
func (s *TenantService) Activate(ctx context.Context, slug shared.TenantID) (*tenant.Tenant, error) {
	t, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.provisioner.ProvisionTenant(ctx, slug); err != nil {
		return nil, err
	}

	if err := t.Activate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Suspend takes a tenant out of service. Its schema and data stay intact.
func (s *TenantService) Suspend(ctx context.Context, slug shared.TenantID) (*tenant.Tenant, error) {
	t, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := t.Suspend(); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant suspended", zap.String("tenant_id", string(slug)))
	return t, nil
}

// FindBySlug loads a tenant registry row.
func (s *TenantService) FindBySlug(ctx context.Context, slug shared.TenantID) (*tenant.Tenant, error) {
	return s.tenants.FindBySlug(ctx, slug)
}
