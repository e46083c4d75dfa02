package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

// newMockRouter creates a Router with a mocked SQL connection. The schema is
// pre-marked ready so no provisioning statements reach the mock.
func newMockRouter(t *testing.T) (*Router, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	provisioner := &SchemaProvisioner{
		logger: zap.NewNop(),
		ready:  map[SchemaName]bool{"tenant_acme_schema": true},
	}

	return NewRouter(gormDB, provisioner, zap.NewNop()), mock, mockDB
}

func TestRouter_RunBindsAndResetsSearchPath(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")

	// The schema is always bound as a quoted identifier and reset before
	// the pinned connection returns to the pool.
	mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(`SET search_path TO public`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := router.Run(ctx, "acme", func(db *gorm.DB) error {
		var one int
		return db.Raw("SELECT 1").Scan(&one).Error
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RunResetsSearchPathAfterFnError(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	sentinel := errors.New("boom")

	mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO public`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := router.Run(ctx, "acme", func(db *gorm.DB) error {
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RunInTransactionUsesSetLocal(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := router.RunInTransaction(ctx, "acme", func(tx *gorm.DB) error {
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RunInTransactionRollsBackOnError(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	sentinel := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := router.RunInTransaction(ctx, "acme", func(tx *gorm.DB) error {
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RejectsTenantMismatch(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")

	err := router.Run(ctx, "globex", func(db *gorm.DB) error {
		t.Fatal("fn must not run on a tenant mismatch")
		return nil
	})

	require.ErrorIs(t, err, shared.ErrTenantMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_RejectsMissingTenantContext(t *testing.T) {
	router, mock, mockDB := newMockRouter(t)
	defer mockDB.Close()

	err := router.RunInTransaction(context.Background(), "acme", func(tx *gorm.DB) error {
		t.Fatal("fn must not run without a bound tenant")
		return nil
	})

	require.ErrorIs(t, err, shared.ErrTenantContextMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}
