package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

type staticTenantLister struct {
	tenants []shared.TenantID
	err     error
}

func (l *staticTenantLister) ListActive(ctx context.Context) ([]shared.TenantID, error) {
	return l.tenants, l.err
}

func seedExpiring(t *testing.T, repo *fakeStockItemRepository, tenantID shared.TenantID, expiresIn time.Duration) *stock.StockItem {
	t.Helper()
	// Build with a far-out date so the initial class is OK, then move the
	// date to the window under test.
	future := time.Now().Add(365 * 24 * time.Hour)
	item, err := stock.NewStockItem(tenantID, uuid.New(), "SKU", uuid.NewString(), decimal.NewFromInt(10), &future)
	require.NoError(t, err)
	item.ClearDomainEvents()
	expiry := time.Now().Add(expiresIn)
	item.ExpiryDate = &expiry
	repo.put(tenantID, item)
	return item
}

func TestExpirySweeper_ReclassifiesWarningAndExpired(t *testing.T) {
	repo := newFakeStockItemRepository()
	warning := seedExpiring(t, repo, testTenant, 3*24*time.Hour)
	expired := seedExpiring(t, repo, testTenant, -time.Hour)

	sweeper := NewExpirySweeper(repo, &staticTenantLister{tenants: []shared.TenantID{testTenant}}, time.Hour, zap.NewNop())
	require.NoError(t, sweeper.SweepTenant(context.Background(), testTenant))

	got, err := repo.FindByID(context.Background(), testTenant, warning.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.ExpiryClassWarning, got.ExpiryClass)

	got, err = repo.FindByID(context.Background(), testTenant, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.ExpiryClassExpired, got.ExpiryClass)
}

func TestExpirySweeper_LeavesHealthyStockAlone(t *testing.T) {
	repo := newFakeStockItemRepository()
	healthy := seedExpiring(t, repo, testTenant, 60*24*time.Hour)
	savesBefore := repo.saves

	sweeper := NewExpirySweeper(repo, &staticTenantLister{tenants: []shared.TenantID{testTenant}}, time.Hour, zap.NewNop())
	require.NoError(t, sweeper.SweepTenant(context.Background(), testTenant))

	got, err := repo.FindByID(context.Background(), testTenant, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.ExpiryClassOK, got.ExpiryClass)
	assert.Equal(t, savesBefore, repo.saves)
}

func TestExpirySweeper_SweepAllCoversEveryActiveTenant(t *testing.T) {
	repo := newFakeStockItemRepository()
	other := shared.TenantID("globex")
	a := seedExpiring(t, repo, testTenant, -time.Hour)
	b := seedExpiring(t, repo, other, -time.Hour)

	lister := &staticTenantLister{tenants: []shared.TenantID{testTenant, other}}
	sweeper := NewExpirySweeper(repo, lister, time.Hour, zap.NewNop())
	sweeper.SweepAll(context.Background())

	got, err := repo.FindByID(context.Background(), testTenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.ExpiryClassExpired, got.ExpiryClass)

	got, err = repo.FindByID(context.Background(), other, b.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.ExpiryClassExpired, got.ExpiryClass)
}

func TestExpirySweeper_SaveConflictDoesNotAbortPass(t *testing.T) {
	repo := newFakeStockItemRepository()
	seedExpiring(t, repo, testTenant, -time.Hour)
	seedExpiring(t, repo, testTenant, -time.Hour)
	repo.saveErr = shared.ErrOptimisticLockConflict

	sweeper := NewExpirySweeper(repo, &staticTenantLister{tenants: []shared.TenantID{testTenant}}, time.Hour, zap.NewNop())
	require.NoError(t, sweeper.SweepTenant(context.Background(), testTenant))
	assert.Equal(t, 2, repo.saves, "both items attempted despite conflicts")
}
