package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

func TestSchemaFor(t *testing.T) {
	tests := []struct {
		name     string
		tenantID shared.TenantID
		want     SchemaName
		wantErr  error
	}{
		{name: "valid slug", tenantID: "acme", want: "tenant_acme_schema"},
		{name: "slug with underscore and digits", tenantID: "acme_2", want: "tenant_acme_2_schema"},
		{name: "empty tenant", tenantID: "", wantErr: shared.ErrTenantContextMissing},
		{name: "slug with quote", tenantID: `ac"me`, wantErr: shared.ErrInvalidSchemaIdentifier},
		{name: "slug with semicolon", tenantID: "acme;drop", wantErr: shared.ErrInvalidSchemaIdentifier},
		{name: "slug with space", tenantID: "ac me", wantErr: shared.ErrInvalidSchemaIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SchemaFor(tt.tenantID)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaNameValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema SchemaName
		valid  bool
	}{
		{name: "tenant schema", schema: "tenant_acme_schema", valid: true},
		{name: "public bootstrap schema", schema: SchemaName(shared.SchemaPublic), valid: true},
		{name: "missing prefix", schema: "acme_schema", valid: false},
		{name: "missing suffix", schema: "tenant_acme", valid: false},
		{name: "embedded quote", schema: `tenant_ac"me_schema`, valid: false},
		{name: "empty", schema: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shared.ErrInvalidSchemaIdentifier)
			}
		})
	}
}

func TestSchemaNameQuoted(t *testing.T) {
	assert.Equal(t, `"tenant_acme_schema"`, SchemaName("tenant_acme_schema").Quoted())
}

func TestResolveSchema(t *testing.T) {
	t.Run("resolves from bound tenant", func(t *testing.T) {
		ctx := tenantctx.WithTenant(context.Background(), "acme")

		schema, err := ResolveSchema(ctx)

		require.NoError(t, err)
		assert.Equal(t, SchemaName("tenant_acme_schema"), schema)
	})

	t.Run("fails without a bound tenant", func(t *testing.T) {
		_, err := ResolveSchema(context.Background())
		assert.ErrorIs(t, err, shared.ErrTenantContextMissing)
	})
}
