package persistence

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

// SchemaName is a validated physical schema identifier. Values are only ever
// constructed through ResolveSchema or SchemaFor, so a SchemaName held by the
// router is always safe to embed as a quoted identifier.
type SchemaName string

// schemaPattern is the closed set of acceptable schema identifiers: the
// shared bootstrap schema, or a tenant schema derived from a validated slug.
var schemaPattern = regexp.MustCompile(`^tenant_[a-zA-Z0-9_]+_schema$`)

// String returns the raw schema name
func (s SchemaName) String() string { return string(s) }

// Quoted returns the schema as a quoted identifier for dynamic statements.
func (s SchemaName) Quoted() string {
	return pq.QuoteIdentifier(string(s))
}

// SchemaFor derives the schema name for a tenant. The tenant slug is
// validated first, so the result always matches schemaPattern.
func SchemaFor(tenantID shared.TenantID) (SchemaName, error) {
	if err := tenantID.Validate(); err != nil {
		return "", err
	}
	name := SchemaName(fmt.Sprintf("tenant_%s_schema", tenantID))
	if err := name.Validate(); err != nil {
		return "", err
	}
	return name, nil
}

// Validate rejects anything outside the closed identifier set before it can
// reach a dynamically-constructed statement.
func (s SchemaName) Validate() error {
	if s == shared.SchemaPublic {
		return nil
	}
	if !schemaPattern.MatchString(string(s)) {
		return fmt.Errorf("%w: %q", shared.ErrInvalidSchemaIdentifier, string(s))
	}
	return nil
}

// ResolveSchema maps the tenant bound in the context to its schema name,
// failing with ErrTenantContextMissing when no tenant is bound.
func ResolveSchema(ctx context.Context) (SchemaName, error) {
	tenantID, err := tenantctx.FromContext(ctx)
	if err != nil {
		return "", err
	}
	return SchemaFor(tenantID)
}
