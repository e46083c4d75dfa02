package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

func newMockLocationRepository(t *testing.T) (*GormLocationRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	router, mock, mockDB := newMockRouter(t)
	return NewGormLocationRepository(router, nil), mock, mockDB
}

// savedLocation builds a fully populated aggregate as it looks after a
// successful mutation, version already bumped.
func savedLocation(t *testing.T) *location.Location {
	t.Helper()
	loc, err := location.NewLocation("acme", "A-01", "A", 5)
	require.NoError(t, err)
	require.NoError(t, loc.Occupy(uuid.New()))
	loc.ClearDomainEvents()
	return loc
}

func expectTenantTransaction(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestGormLocationRepository_SaveUpdatesWithVersionPredicate(t *testing.T) {
	repo, mock, mockDB := newMockLocationRepository(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	loc := savedLocation(t)

	expectTenantTransaction(mock)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "locations" WHERE id = \$1`).
		WithArgs(loc.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE "locations" SET .* WHERE id = \$6 AND version = \$7`).
		WithArgs(loc.Active, sqlmock.AnyArg(), loc.Occupied, sqlmock.AnyArg(), loc.Version, loc.ID, loc.Version-1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(ctx, "acme", loc)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLocationRepository_SaveDetectsLostVersionRace(t *testing.T) {
	repo, mock, mockDB := newMockLocationRepository(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	loc := savedLocation(t)

	expectTenantTransaction(mock)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "locations" WHERE id = \$1`).
		WithArgs(loc.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// Another writer committed first: the versioned update matches no row
	// and the transaction rolls back.
	mock.ExpectExec(`UPDATE "locations" SET .* WHERE id = \$6 AND version = \$7`).
		WithArgs(loc.Active, sqlmock.AnyArg(), loc.Occupied, sqlmock.AnyArg(), loc.Version, loc.ID, loc.Version-1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(ctx, "acme", loc)

	require.ErrorIs(t, err, shared.ErrOptimisticLockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLocationRepository_SaveInsertsUnseenAggregate(t *testing.T) {
	repo, mock, mockDB := newMockLocationRepository(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	loc := savedLocation(t)

	expectTenantTransaction(mock)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "locations" WHERE id = \$1`).
		WithArgs(loc.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO "locations"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(ctx, "acme", loc)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLocationRepository_FindByIDMapsMissingRow(t *testing.T) {
	repo, mock, mockDB := newMockLocationRepository(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	id := uuid.New()

	mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "locations" WHERE id = \$1`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`SET search_path TO public`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.FindByID(ctx, "acme", id)

	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLocationRepository_FindByIDScansOccupants(t *testing.T) {
	repo, mock, mockDB := newMockLocationRepository(t)
	defer mockDB.Close()

	ctx := tenantctx.WithTenant(context.Background(), "acme")
	id := uuid.New()
	occupant := uuid.New()
	now := time.Now()

	mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "locations" WHERE id = \$1`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "code", "zone", "capacity", "occupied", "occupants", "active", "version", "created_at", "updated_at",
		}).AddRow(id, "acme", "A-01", "A", 5, 1, []byte(`["`+occupant.String()+`"]`), true, 2, now, now))
	mock.ExpectExec(`SET search_path TO public`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	loc, err := repo.FindByID(ctx, "acme", id)

	require.NoError(t, err)
	assert.Equal(t, 1, loc.Occupied)
	assert.True(t, loc.OccupiedBy(occupant))
	assert.NoError(t, mock.ExpectationsWereMet())
}
