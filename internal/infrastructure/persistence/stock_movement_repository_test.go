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

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

func newMockStockMovementRepository(t *testing.T) (*GormStockMovementRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	router, mock, mockDB := newMockRouter(t)
	return NewGormStockMovementRepository(router), mock, mockDB
}

func TestGormStockMovementRepository_FindByReference(t *testing.T) {
	t.Run("finds journaled movement", func(t *testing.T) {
		repo, mock, mockDB := newMockStockMovementRepository(t)
		defer mockDB.Close()

		ctx := tenantctx.WithTenant(context.Background(), "acme")
		reference := uuid.New().String()
		now := time.Now()

		mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE reference = \$1`).
			WithArgs(reference, 1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "tenant_id", "stock_item_id", "movement_type", "quantity", "reference", "created_at", "updated_at",
			}).AddRow(uuid.New(), "acme", uuid.New(), "PUTAWAY", "10", reference, now, now))
		mock.ExpectExec(`SET search_path TO public`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		movement, err := repo.FindByReference(ctx, "acme", reference)

		require.NoError(t, err)
		assert.Equal(t, reference, movement.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing movement to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockStockMovementRepository(t)
		defer mockDB.Close()

		ctx := tenantctx.WithTenant(context.Background(), "acme")

		mock.ExpectExec(`SET search_path TO "tenant_acme_schema"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE reference = \$1`).
			WithArgs("missing", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`SET search_path TO public`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.FindByReference(ctx, "acme", "missing")

		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
