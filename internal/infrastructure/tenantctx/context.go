// Package tenantctx carries the active tenant identity through a request or
// message-processing unit as an explicit context value.
//
// The tenant is bound at the entry boundary (HTTP middleware, event
// dispatcher) and read by the persistence router before every data access.
// It is scoped, not ambient: RunScoped guarantees the binding does not leak
// into the next unit of work processed by the same goroutine.
package tenantctx

import (
	"context"

	"github.com/wms/backend/internal/domain/shared"
)

type contextKey struct{}

var tenantKey contextKey

// WithTenant returns a context with the tenant bound.
func WithTenant(ctx context.Context, tenantID shared.TenantID) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// FromContext returns the bound tenant, or ErrTenantContextMissing if none
// is set. Every persistence and event-processing operation must call this
// before touching storage.
func FromContext(ctx context.Context) (shared.TenantID, error) {
	tenantID, ok := ctx.Value(tenantKey).(shared.TenantID)
	if !ok || tenantID.IsZero() {
		return "", shared.ErrTenantContextMissing
	}
	return tenantID, nil
}

// Verify checks that the caller-supplied tenant matches the context tenant.
// A mismatch signals a caller bug and is never silently corrected.
func Verify(ctx context.Context, tenantID shared.TenantID) error {
	bound, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if bound != tenantID {
		return shared.ErrTenantMismatch
	}
	return nil
}

// RunScoped binds the tenant for exactly the duration of fn. The derived
// context never escapes fn, so the binding cannot leak across units of work
// even when fn panics.
func RunScoped(ctx context.Context, tenantID shared.TenantID, fn func(ctx context.Context) error) error {
	if err := tenantID.Validate(); err != nil {
		return err
	}
	return fn(WithTenant(ctx, tenantID))
}
