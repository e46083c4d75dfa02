package location

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
)

const testTenant = shared.TenantID("acme")

type fakeLocationRepository struct {
	mu        sync.Mutex
	locations map[uuid.UUID]*location.Location
	saves     int
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
	r.saves++
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

func (r *fakeLocationRepository) occupied(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locations[id].Occupied
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
		err := j.appendErr
		j.appendErr = nil
		return err
	}
	j.movements = append(j.movements, movement)
	return nil
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

type handlerFixture struct {
	locations *fakeLocationRepository
	movements *fakeMovementJournal
	handler   *AssignmentHandler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		locations: newFakeLocationRepository(),
		movements: &fakeMovementJournal{},
	}
	f.handler = NewAssignmentHandler(f.locations, f.movements, zap.NewNop())
	return f
}

func (f *handlerFixture) seedLocation(t *testing.T, code string, capacity int) *location.Location {
	t.Helper()
	loc, err := location.NewLocation(testTenant, code, "A", capacity)
	require.NoError(t, err)
	require.NoError(t, f.locations.Save(context.Background(), testTenant, loc))
	f.locations.saves = 0
	return loc
}

func assignedEvent(t *testing.T, locationID uuid.UUID, previous *uuid.UUID) (*stock.LocationAssignedEvent, uuid.UUID) {
	t.Helper()
	item, err := stock.NewStockItem(testTenant, uuid.New(), "SKU", "B-1", decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	return stock.NewLocationAssignedEvent(item, locationID, previous), item.ID
}

func TestAssignmentHandler_OccupiesLocationAndJournalsPutaway(t *testing.T) {
	f := newHandlerFixture()
	loc := f.seedLocation(t, "A-01", 5)
	event, itemID := assignedEvent(t, loc.ID, nil)

	require.NoError(t, f.handler.Handle(context.Background(), event))

	assert.Equal(t, 1, f.locations.occupied(loc.ID))
	require.Len(t, f.movements.movements, 1)
	m := f.movements.movements[0]
	assert.Equal(t, stock.MovementTypePutaway, m.MovementType)
	assert.Equal(t, itemID, m.StockItemID)
	assert.Equal(t, event.EventID().String(), m.Reference)
}

func TestAssignmentHandler_RedeliveryDoesNotDoubleOccupy(t *testing.T) {
	f := newHandlerFixture()
	loc := f.seedLocation(t, "A-01", 5)
	event, _ := assignedEvent(t, loc.ID, nil)

	require.NoError(t, f.handler.Handle(context.Background(), event))
	require.NoError(t, f.handler.Handle(context.Background(), event))

	assert.Equal(t, 1, f.locations.occupied(loc.ID))
	assert.Len(t, f.movements.movements, 1)
}

func TestAssignmentHandler_RedeliveryAfterJournalFailureConverges(t *testing.T) {
	f := newHandlerFixture()
	loc := f.seedLocation(t, "A-01", 5)
	event, _ := assignedEvent(t, loc.ID, nil)

	// First delivery persists the occupancy but crashes on the journal
	// write, so the dispatcher redelivers.
	f.movements.appendErr = errors.New("connection reset")
	require.Error(t, f.handler.Handle(context.Background(), event))
	require.Equal(t, 1, f.locations.occupied(loc.ID))
	require.Empty(t, f.movements.movements)

	require.NoError(t, f.handler.Handle(context.Background(), event))

	assert.Equal(t, 1, f.locations.occupied(loc.ID))
	require.Len(t, f.movements.movements, 1)
	assert.Equal(t, event.EventID().String(), f.movements.movements[0].Reference)
}

func TestAssignmentHandler_MoveRedeliveryAfterJournalFailureConverges(t *testing.T) {
	f := newHandlerFixture()
	from := f.seedLocation(t, "A-01", 5)
	to := f.seedLocation(t, "A-02", 5)

	first, itemID := assignedEvent(t, from.ID, nil)
	require.NoError(t, f.handler.Handle(context.Background(), first))

	move := stock.NewLocationAssignedEvent(&stock.StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(testTenant),
		Quantity:            decimal.NewFromInt(10),
	}, to.ID, &from.ID)
	move.StockItemID = itemID

	f.movements.appendErr = errors.New("connection reset")
	require.Error(t, f.handler.Handle(context.Background(), move))
	require.NoError(t, f.handler.Handle(context.Background(), move))

	assert.Equal(t, 0, f.locations.occupied(from.ID))
	assert.Equal(t, 1, f.locations.occupied(to.ID))
	require.Len(t, f.movements.movements, 2)
}

func TestAssignmentHandler_MoveVacatesPreviousLocation(t *testing.T) {
	f := newHandlerFixture()
	from := f.seedLocation(t, "A-01", 5)
	to := f.seedLocation(t, "A-02", 5)

	first, itemID := assignedEvent(t, from.ID, nil)
	require.NoError(t, f.handler.Handle(context.Background(), first))

	move := stock.NewLocationAssignedEvent(&stock.StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(testTenant),
		Quantity:            decimal.NewFromInt(10),
	}, to.ID, &from.ID)
	move.StockItemID = itemID

	require.NoError(t, f.handler.Handle(context.Background(), move))

	assert.Equal(t, 0, f.locations.occupied(from.ID))
	assert.Equal(t, 1, f.locations.occupied(to.ID))
}

func TestAssignmentHandler_FullLocationRejectsTerminally(t *testing.T) {
	f := newHandlerFixture()
	loc := f.seedLocation(t, "A-01", 1)

	first, _ := assignedEvent(t, loc.ID, nil)
	require.NoError(t, f.handler.Handle(context.Background(), first))

	second, _ := assignedEvent(t, loc.ID, nil)
	err := f.handler.Handle(context.Background(), second)

	require.ErrorIs(t, err, shared.ErrInsufficientCapacity)
	assert.True(t, shared.IsDomainError(err))
	assert.Equal(t, 1, f.locations.occupied(loc.ID))
}

func TestAssignmentHandler_ReleaseVacatesAndJournalsPick(t *testing.T) {
	f := newHandlerFixture()
	loc := f.seedLocation(t, "A-01", 5)

	assigned, itemID := assignedEvent(t, loc.ID, nil)
	require.NoError(t, f.handler.Handle(context.Background(), assigned))

	released := stock.NewLocationReleasedEvent(&stock.StockItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(testTenant),
		Quantity:            decimal.NewFromInt(10),
	}, loc.ID)
	released.StockItemID = itemID

	require.NoError(t, f.handler.Handle(context.Background(), released))

	assert.Equal(t, 0, f.locations.occupied(loc.ID))
	require.Len(t, f.movements.movements, 2)
	assert.Equal(t, stock.MovementTypePick, f.movements.movements[1].MovementType)
	assert.Equal(t, released.EventID().String(), f.movements.movements[1].Reference)
}

func TestAssignmentHandler_VanishedPreviousLocationIsTolerated(t *testing.T) {
	f := newHandlerFixture()
	to := f.seedLocation(t, "A-02", 5)
	gone := uuid.New()

	event, _ := assignedEvent(t, to.ID, &gone)
	require.NoError(t, f.handler.Handle(context.Background(), event))
	assert.Equal(t, 1, f.locations.occupied(to.ID))
}
