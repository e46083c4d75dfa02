package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

type fakeStockItemRepository struct {
	mu      sync.Mutex
	items   map[shared.TenantID]map[uuid.UUID]*stock.StockItem
	saveErr error
	saves   int
}

func newFakeStockItemRepository() *fakeStockItemRepository {
	return &fakeStockItemRepository{items: make(map[shared.TenantID]map[uuid.UUID]*stock.StockItem)}
}

func (r *fakeStockItemRepository) put(tenantID shared.TenantID, item *stock.StockItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[tenantID] == nil {
		r.items[tenantID] = make(map[uuid.UUID]*stock.StockItem)
	}
	copied := *item
	r.items[tenantID][item.ID] = &copied
}

func (r *fakeStockItemRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[tenantID][id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *fakeStockItemRepository) Save(ctx context.Context, tenantID shared.TenantID, item *stock.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.items[tenantID] == nil {
		r.items[tenantID] = make(map[uuid.UUID]*stock.StockItem)
	}
	copied := *item
	r.items[tenantID][item.ID] = &copied
	item.ClearDomainEvents()
	return nil
}

func (r *fakeStockItemRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items[tenantID], id)
	return nil
}

func (r *fakeStockItemRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[tenantID][id]
	return ok, nil
}

func (r *fakeStockItemRepository) FindByProduct(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, filter shared.Filter) ([]stock.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.StockItem
	for _, item := range r.items[tenantID] {
		if item.ProductID == productID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeStockItemRepository) FindByBatch(ctx context.Context, tenantID shared.TenantID, productID uuid.UUID, batchNumber string) (*stock.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items[tenantID] {
		if item.ProductID == productID && item.BatchNumber == batchNumber {
			copied := *item
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeStockItemRepository) FindExpiringBefore(ctx context.Context, tenantID shared.TenantID, cutoff time.Time, filter shared.Filter) ([]stock.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.StockItem
	for _, item := range r.items[tenantID] {
		if item.ExpiryDate != nil && !item.ExpiryDate.After(cutoff) && item.ExpiryClass != stock.ExpiryClassExpired {
			out = append(out, *item)
		}
	}
	if filter.PageSize > 0 && len(out) > filter.PageSize {
		out = out[:filter.PageSize]
	}
	return out, nil
}

type fakeMovementJournal struct {
	mu        sync.Mutex
	movements []*stock.StockMovement
	appendErr error
}

func (j *fakeMovementJournal) Append(ctx context.Context, tenantID shared.TenantID, movement *stock.StockMovement) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.appendErr != nil {
		return j.appendErr
	}
	j.movements = append(j.movements, movement)
	return nil
}

func (j *fakeMovementJournal) FindByStockItem(ctx context.Context, tenantID shared.TenantID, stockItemID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []stock.StockMovement
	for _, m := range j.movements {
		if m.StockItemID == stockItemID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (j *fakeMovementJournal) FindByReference(ctx context.Context, tenantID shared.TenantID, reference string) (*stock.StockMovement, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, m := range j.movements {
		if m.Reference == reference {
			copied := *m
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeAllocationRepository struct {
	mu          sync.Mutex
	allocations map[uuid.UUID]*stock.StockAllocation
}

func newFakeAllocationRepository() *fakeAllocationRepository {
	return &fakeAllocationRepository{allocations: make(map[uuid.UUID]*stock.StockAllocation)}
}

func (r *fakeAllocationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*stock.StockAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.allocations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAllocationRepository) Save(ctx context.Context, tenantID shared.TenantID, a *stock.StockAllocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *a
	r.allocations[a.ID] = &copied
	return nil
}

func (r *fakeAllocationRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.allocations, id)
	return nil
}

func (r *fakeAllocationRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.allocations[id]
	return ok, nil
}

func (r *fakeAllocationRepository) FindByOrderLine(ctx context.Context, tenantID shared.TenantID, orderLineID, stockItemID uuid.UUID) (*stock.StockAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.allocations {
		if a.OrderLineID == orderLineID && a.StockItemID == stockItemID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeAllocationRepository) FindByOrder(ctx context.Context, tenantID shared.TenantID, orderID uuid.UUID) ([]stock.StockAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.StockAllocation
	for _, a := range r.allocations {
		if a.OrderID == orderID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeLocationRepository struct {
	mu        sync.Mutex
	locations map[uuid.UUID]*location.Location
}

func newFakeLocationRepository() *fakeLocationRepository {
	return &fakeLocationRepository{locations: make(map[uuid.UUID]*location.Location)}
}

func (r *fakeLocationRepository) FindByID(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (*location.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *loc
	return &copied, nil
}

func (r *fakeLocationRepository) Save(ctx context.Context, tenantID shared.TenantID, loc *location.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *loc
	r.locations[loc.ID] = &copied
	loc.ClearDomainEvents()
	return nil
}

func (r *fakeLocationRepository) Delete(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locations, id)
	return nil
}

func (r *fakeLocationRepository) Exists(ctx context.Context, tenantID shared.TenantID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locations[id]
	return ok, nil
}

func (r *fakeLocationRepository) FindByCode(ctx context.Context, tenantID shared.TenantID, code string) (*location.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, loc := range r.locations {
		if loc.Code == code {
			copied := *loc
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLocationRepository) FindAvailableInZone(ctx context.Context, tenantID shared.TenantID, zone string, filter shared.Filter) ([]location.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []location.Location
	for _, loc := range r.locations {
		if loc.Zone == zone && loc.HasCapacity() {
			out = append(out, *loc)
		}
	}
	return out, nil
}

type fakeProductResolver struct {
	refs    map[string]*stock.ProductRef
	err     error
	lookups int
}

func (r *fakeProductResolver) ResolveCode(ctx context.Context, tenantID shared.TenantID, code string) (*stock.ProductRef, error) {
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	ref, ok := r.refs[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ref, nil
}
