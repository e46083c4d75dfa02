package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// SchemaProvisioner lazily creates tenant schemas and applies their
// migrations before first use. EnsureSchemaReady is idempotent and safe
// under concurrent provisioning: an advisory lock serializes creation, and
// the migration-history ledger inside the schema ensures each migration runs
// exactly once.
type SchemaProvisioner struct {
	adminDB        *sql.DB
	dsn            string
	migrationsPath string
	logger         *zap.Logger

	mu    sync.RWMutex
	ready map[SchemaName]bool
}

// NewSchemaProvisioner creates a provisioner. adminDB is used for schema DDL
// and advisory locking; dsn is the base connection string used to open a
// schema-bound connection for running migrations.
func NewSchemaProvisioner(adminDB *sql.DB, dsn, migrationsPath string, logger *zap.Logger) *SchemaProvisioner {
	return &SchemaProvisioner{
		adminDB:        adminDB,
		dsn:            dsn,
		migrationsPath: migrationsPath,
		logger:         logger.Named("provisioner"),
		ready:          make(map[SchemaName]bool),
	}
}

// EnsureSchemaReady creates the schema if absent and applies pending
// migrations. Repeat calls for an already-prepared schema return immediately.
func (p *SchemaProvisioner) EnsureSchemaReady(ctx context.Context, schema SchemaName) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	p.mu.RLock()
	done := p.ready[schema]
	p.mu.RUnlock()
	if done {
		return nil
	}

	if err := p.provision(ctx, schema); err != nil {
		return err
	}

	p.mu.Lock()
	p.ready[schema] = true
	p.mu.Unlock()
	return nil
}

// ProvisionTenant derives the tenant's schema name and ensures it is ready.
func (p *SchemaProvisioner) ProvisionTenant(ctx context.Context, tenantID shared.TenantID) error {
	schema, err := SchemaFor(tenantID)
	if err != nil {
		return err
	}
	return p.EnsureSchemaReady(ctx, schema)
}

func (p *SchemaProvisioner) provision(ctx context.Context, schema SchemaName) error {
	// Serialize concurrent provisioning of the same schema across processes.
	// The lock must live on a pinned connection; pool checkout would release
	// it nondeterministically.
	conn, err := p.adminDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for provisioning: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1)::bigint)", schema.String()); err != nil {
		return fmt.Errorf("failed to acquire provisioning lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock(hashtext($1)::bigint)", schema.String()); err != nil {
			p.logger.Warn("failed to release provisioning lock",
				zap.String("schema", schema.String()),
				zap.Error(err),
			)
		}
	}()

	// Schema name is validated and quoted; never raw input.
	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema.Quoted())
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}

	if err := p.migrate(schema); err != nil {
		return err
	}

	p.logger.Info("schema ready",
		zap.String("schema", schema.String()),
	)
	return nil
}

// migrate runs pending migrations against the schema. The connection is
// opened with search_path pinned to the schema so migration files stay
// schema-agnostic; the migration ledger lives inside the schema itself.
func (p *SchemaProvisioner) migrate(schema SchemaName) error {
	dsn := fmt.Sprintf("%s search_path=%s", p.dsn, schema)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open schema connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		SchemaName:      schema.String(),
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", p.migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate schema %s: %w", schema, err)
	}
	return nil
}
