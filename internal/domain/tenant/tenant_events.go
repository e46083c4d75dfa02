package tenant

import (
	"github.com/wms/backend/internal/domain/shared"
)

// AggregateTypeTenant is the aggregate type discriminator for tenants
const AggregateTypeTenant = "Tenant"

// EventTypeTenantActivated is emitted when a tenant becomes ready for traffic
const EventTypeTenantActivated = "TenantActivated"

// TenantActivatedEvent is consumed by every service to eagerly warm the
// tenant's schema instead of paying the provisioning cost on first request.
type TenantActivatedEvent struct {
	shared.BaseDomainEvent
	Slug shared.TenantID `json:"slug"`
	Name string          `json:"name"`
}

// NewTenantActivatedEvent creates a new TenantActivatedEvent
func NewTenantActivatedEvent(t *Tenant) *TenantActivatedEvent {
	return &TenantActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantActivated, AggregateTypeTenant, t.ID, t.Slug),
		Slug:            t.Slug,
		Name:            t.Name,
	}
}

// EventType returns the event type name
func (e *TenantActivatedEvent) EventType() string { return EventTypeTenantActivated }
