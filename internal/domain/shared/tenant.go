package shared

import (
	"fmt"
	"regexp"
)

// TenantID is the opaque identifier of an isolated tenant. Each tenant's
// data lives in its own database schema derived from this identifier.
type TenantID string

// SchemaPublic is the shared bootstrap schema holding the tenant registry
// and other cross-tenant bookkeeping tables.
const SchemaPublic = "public"

var tenantSlugPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsZero reports whether the tenant ID is unset.
func (t TenantID) IsZero() bool {
	return t == ""
}

// Validate checks that the tenant ID is non-empty and only contains
// characters that are safe to embed in a schema identifier.
func (t TenantID) Validate() error {
	if t.IsZero() {
		return ErrTenantContextMissing
	}
	if !tenantSlugPattern.MatchString(string(t)) {
		return fmt.Errorf("%w: tenant id %q", ErrInvalidSchemaIdentifier, string(t))
	}
	return nil
}

func (t TenantID) String() string {
	return string(t)
}
