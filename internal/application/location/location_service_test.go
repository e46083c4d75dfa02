package location

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

func TestLocationService_CreateLocation(t *testing.T) {
	repo := newFakeLocationRepository()
	svc := NewLocationService(repo, zap.NewNop())

	loc, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01-01", Zone: "A", Capacity: 4})
	require.NoError(t, err)
	assert.Equal(t, "A-01-01", loc.Code)
	assert.True(t, loc.Active)

	stored, err := repo.FindByCode(context.Background(), testTenant, "A-01-01")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Capacity)
}

func TestLocationService_CreateLocationRejectsDuplicateCode(t *testing.T) {
	repo := newFakeLocationRepository()
	svc := NewLocationService(repo, zap.NewNop())

	_, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01-01", Zone: "A", Capacity: 4})
	require.NoError(t, err)

	_, err = svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01-01", Zone: "B", Capacity: 2})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "LOCATION_CODE_TAKEN", domainErr.Code)
}

func TestLocationService_CreateLocationValidatesInput(t *testing.T) {
	svc := NewLocationService(newFakeLocationRepository(), zap.NewNop())

	_, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "", Zone: "A", Capacity: 4})
	assert.True(t, shared.IsDomainError(err))

	_, err = svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01", Zone: "A", Capacity: 0})
	assert.True(t, shared.IsDomainError(err))
}

func TestLocationService_DeactivateRejectsOccupied(t *testing.T) {
	repo := newFakeLocationRepository()
	svc := NewLocationService(repo, zap.NewNop())

	loc, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01-01", Zone: "A", Capacity: 4})
	require.NoError(t, err)

	stored := repo.locations[loc.ID]
	require.NoError(t, stored.Occupy(uuid.New()))

	err = svc.Deactivate(context.Background(), testTenant, loc.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "LOCATION_OCCUPIED", domainErr.Code)
}

func TestLocationService_Deactivate(t *testing.T) {
	repo := newFakeLocationRepository()
	svc := NewLocationService(repo, zap.NewNop())

	loc, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01-01", Zone: "A", Capacity: 4})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), testTenant, loc.ID))

	stored, err := repo.FindByID(context.Background(), testTenant, loc.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestLocationService_FindAvailableInZoneSkipsFullAndInactive(t *testing.T) {
	repo := newFakeLocationRepository()
	svc := NewLocationService(repo, zap.NewNop())

	free, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-01", Zone: "A", Capacity: 2})
	require.NoError(t, err)
	full, err := svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "A-02", Zone: "A", Capacity: 1})
	require.NoError(t, err)
	_, err = svc.CreateLocation(context.Background(), testTenant, CreateLocationInput{Code: "B-01", Zone: "B", Capacity: 2})
	require.NoError(t, err)

	require.NoError(t, repo.locations[full.ID].Occupy(uuid.New()))

	available, err := svc.FindAvailableInZone(context.Background(), testTenant, "A", shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].ID)
}
