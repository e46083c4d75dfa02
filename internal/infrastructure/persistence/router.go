package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

// Router binds every data access to the schema of the tenant bound in the
// context. Pooled connections are shared across tenants, so the search scope
// is established per operation on a pinned connection and released before the
// connection returns to the pool. It is never memoized.
//
// Every operation fails fast on a missing tenant context or a mismatch
// between the caller-supplied tenant and the context tenant; both signal
// caller bugs and are caught before any statement reaches storage.
type Router struct {
	db          *gorm.DB
	provisioner *SchemaProvisioner
	logger      *zap.Logger
}

// NewRouter creates a tenant-routing persistence entry point
func NewRouter(db *gorm.DB, provisioner *SchemaProvisioner, logger *zap.Logger) *Router {
	return &Router{
		db:          db,
		provisioner: provisioner,
		logger:      logger.Named("router"),
	}
}

// bind performs the per-operation preconditions: tenant verification, schema
// resolution/validation, and lazy provisioning.
func (r *Router) bind(ctx context.Context, tenantID shared.TenantID) (SchemaName, error) {
	if err := tenantctx.Verify(ctx, tenantID); err != nil {
		return "", err
	}
	schema, err := ResolveSchema(ctx)
	if err != nil {
		return "", err
	}
	if err := r.provisioner.EnsureSchemaReady(ctx, schema); err != nil {
		return "", err
	}
	return schema, nil
}

// Run executes fn against the tenant's schema on a single pinned connection.
// The search scope is reset before the connection is released, so no scope
// ever leaks to the next tenant using the same pooled connection.
func (r *Router) Run(ctx context.Context, tenantID shared.TenantID, fn func(db *gorm.DB) error) error {
	schema, err := r.bind(ctx, tenantID)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec(fmt.Sprintf("SET search_path TO %s", schema.Quoted())).Error; err != nil {
			return fmt.Errorf("failed to bind search_path: %w", err)
		}
		defer func() {
			if err := conn.Exec("SET search_path TO public").Error; err != nil {
				r.logger.Warn("failed to reset search_path",
					zap.String("schema", schema.String()),
					zap.Error(err),
				)
			}
		}()
		return fn(conn)
	})
}

// RunInTransaction executes fn inside a transaction scoped to the tenant's
// schema. SET LOCAL ties the search scope to the transaction itself: commit
// or rollback both clear it, including on panic.
func (r *Router) RunInTransaction(ctx context.Context, tenantID shared.TenantID, fn func(tx *gorm.DB) error) error {
	schema, err := r.bind(ctx, tenantID)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL search_path TO %s", schema.Quoted())).Error; err != nil {
			return fmt.Errorf("failed to bind search_path: %w", err)
		}
		return fn(tx)
	})
}

// Public returns a session against the shared bootstrap schema for
// cross-tenant bookkeeping (tenant registry, outbox dispatch).
func (r *Router) Public(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}
