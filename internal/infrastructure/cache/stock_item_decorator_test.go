package cache

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

// itemKey scopes fake storage per tenant, matching the schema-per-tenant
// isolation of the real repository
type itemKey struct {
	tenant shared.TenantID
	id     uuid.UUID
}

// fakeStockItemRepository is an in-memory inner repository counting calls
type fakeStockItemRepository struct {
	items     map[itemKey]*stock.StockItem
	findCalls int
	saveCalls int
}

func newFakeStockItemRepository() *fakeStockItemRepository {
	return &fakeStockItemRepository{items: make(map[itemKey]*stock.StockItem)}
}

func (f *fakeStockItemRepository) seed(tenantID shared.TenantID, item *stock.StockItem) {
	f.items[itemKey{tenant: tenantID, id: item.ID}] = item
}

func (f *fakeStockItemRepository) FindByID(_ context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockItem, error) {
	f.findCalls++
	item, ok := f.items[itemKey{tenant: tenantID, id: id}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStockItemRepository) Save(_ context.Context, tenantID shared.TenantID, item *stock.StockItem) error {
	f.saveCalls++
	copied := *item
	f.items[itemKey{tenant: tenantID, id: item.ID}] = &copied
	return nil
}

func (f *fakeStockItemRepository) Delete(_ context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	delete(f.items, itemKey{tenant: tenantID, id: id})
	return nil
}

func (f *fakeStockItemRepository) Exists(_ context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	_, ok := f.items[itemKey{tenant: tenantID, id: id}]
	return ok, nil
}

func (f *fakeStockItemRepository) FindByProduct(context.Context, shared.TenantID, uuid.UUID, shared.Filter) ([]stock.StockItem, error) {
	return nil, nil
}

func (f *fakeStockItemRepository) FindByBatch(context.Context, shared.TenantID, uuid.UUID, string) (*stock.StockItem, error) {
	return nil, nil
}

func (f *fakeStockItemRepository) FindExpiringBefore(context.Context, shared.TenantID, time.Time, shared.Filter) ([]stock.StockItem, error) {
	return nil, nil
}

func newCachedStockItem(t *testing.T) *stock.StockItem {
	t.Helper()
	item, err := stock.NewStockItem("acme", uuid.New(), "SKU-1", "BATCH-1", decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	item.ClearDomainEvents()
	return item
}

func TestCachedStockItemRepository_CacheAsideRead(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	item := newCachedStockItem(t)
	inner.seed("acme", item)

	// First read misses the cache and fills it.
	got, err := repo.FindByID(context.Background(), "acme", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, 1, inner.findCalls)
	assert.True(t, store.has(Key(NamespaceStockItem, "acme", item.ID.String())))

	// Second read is served from the cache.
	got, err = repo.FindByID(context.Background(), "acme", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "SKU-1", got.ProductCode)
	assert.Equal(t, 1, inner.findCalls)
}

func TestCachedStockItemRepository_WriteThroughSave(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	item := newCachedStockItem(t)
	require.NoError(t, repo.Save(context.Background(), "acme", item))

	assert.Equal(t, 1, inner.saveCalls)
	assert.True(t, store.has(Key(NamespaceStockItem, "acme", item.ID.String())))

	// Subsequent read never touches the inner repository.
	got, err := repo.FindByID(context.Background(), "acme", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Zero(t, inner.findCalls)
}

func TestCachedStockItemRepository_DeleteEvicts(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	item := newCachedStockItem(t)
	require.NoError(t, repo.Save(context.Background(), "acme", item))
	require.NoError(t, repo.Delete(context.Background(), "acme", item.ID))

	assert.False(t, store.has(Key(NamespaceStockItem, "acme", item.ID.String())))
}

func TestCachedStockItemRepository_TenantKeysDoNotCollide(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	item := newCachedStockItem(t)
	require.NoError(t, repo.Save(context.Background(), "acme", item))

	// The same ID under another tenant misses the cache and the store.
	_, err := repo.FindByID(context.Background(), "globex", item.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 1, inner.findCalls)

	// The original tenant still reads its own item.
	got, err := repo.FindByID(context.Background(), "acme", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}

func TestCachedStockItemRepository_CacheFailureFallsBack(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	store.fail = true
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	item := newCachedStockItem(t)
	inner.seed("acme", item)

	got, err := repo.FindByID(context.Background(), "acme", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, 1, inner.findCalls)
}

func TestCachedStockItemRepository_ListsBypassCache(t *testing.T) {
	inner := newFakeStockItemRepository()
	store := newMemoryStore()
	repo := NewCachedStockItemRepository(inner, store, time.Minute, zap.NewNop())

	_, err := repo.FindByProduct(context.Background(), "acme", uuid.New(), shared.DefaultFilter())
	require.NoError(t, err)
	_, err = repo.FindExpiringBefore(context.Background(), "acme", time.Now(), shared.DefaultFilter())
	require.NoError(t, err)

	assert.Zero(t, store.gets)
	assert.Zero(t, store.sets)
}
