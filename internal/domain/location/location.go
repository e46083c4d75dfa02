package location

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// OccupantList records which stock items currently hold a slot. It implements
// GORM Scanner/Valuer for JSONB storage so occupancy membership is durable,
// which makes Occupy and Vacate safe to replay on event redelivery.
type OccupantList []uuid.UUID

// Value implements driver.Valuer interface for GORM to store as JSONB
func (o OccupantList) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	return json.Marshal(o)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (o *OccupantList) Scan(value interface{}) error {
	if value == nil {
		*o = OccupantList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into OccupantList", value)
	}
	return json.Unmarshal(bytes, o)
}

// Contains reports whether a stock item is in the list
func (o OccupantList) Contains(stockItemID uuid.UUID) bool {
	for _, id := range o {
		if id == stockItemID {
			return true
		}
	}
	return false
}

// Location is a capacity-bounded storage bin. The occupancy invariant
// (occupied <= capacity) is enforced here, never by callers.
type Location struct {
	shared.TenantAggregateRoot
	Code      string       `gorm:"size:64;not null;uniqueIndex:idx_location_tenant_code,priority:2"`
	Zone      string       `gorm:"size:32;not null;index"`
	Capacity  int          `gorm:"not null;default:1"`
	Occupied  int          `gorm:"not null;default:0"`
	Occupants OccupantList `gorm:"type:jsonb;not null;default:'[]'"`
	Active    bool         `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a storage location
func NewLocation(tenantID shared.TenantID, code, zone string, capacity int) (*Location, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Location code cannot be empty")
	}
	if capacity < 1 {
		return nil, shared.NewDomainError("INVALID_CAPACITY", "Location capacity must be at least 1")
	}
	return &Location{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Zone:                zone,
		Capacity:            capacity,
		Occupied:            0,
		Occupants:           OccupantList{},
		Active:              true,
	}, nil
}

// HasCapacity reports whether another item fits
func (l *Location) HasCapacity() bool {
	return l.Active && l.Occupied < l.Capacity
}

// OccupiedBy reports whether a stock item already holds a slot here
func (l *Location) OccupiedBy(stockItemID uuid.UUID) bool {
	return l.Occupants.Contains(stockItemID)
}

// Occupy claims one slot for a stock item. Claiming a slot the item already
// holds is a no-op, so a replayed assignment never inflates the count.
func (l *Location) Occupy(stockItemID uuid.UUID) error {
	if l.Occupants.Contains(stockItemID) {
		return nil
	}
	if !l.Active {
		return shared.NewDomainError("LOCATION_INACTIVE", "Location is not active")
	}
	if l.Occupied >= l.Capacity {
		return shared.ErrInsufficientCapacity
	}

	l.Occupants = append(l.Occupants, stockItemID)
	l.Occupied = len(l.Occupants)
	l.touch()

	l.AddDomainEvent(NewLocationOccupiedEvent(l, stockItemID))
	return nil
}

// Vacate frees the slot held by a stock item. Vacating an item that holds no
// slot is a no-op.
func (l *Location) Vacate(stockItemID uuid.UUID) error {
	if !l.Occupants.Contains(stockItemID) {
		return nil
	}

	remaining := make(OccupantList, 0, len(l.Occupants)-1)
	for _, id := range l.Occupants {
		if id != stockItemID {
			remaining = append(remaining, id)
		}
	}
	l.Occupants = remaining
	l.Occupied = len(l.Occupants)
	l.touch()

	l.AddDomainEvent(NewLocationVacatedEvent(l, stockItemID))
	return nil
}

// Deactivate takes the location out of service. Occupied locations cannot be
// deactivated.
func (l *Location) Deactivate() error {
	if l.Occupied > 0 {
		return shared.NewDomainError("LOCATION_OCCUPIED", "Cannot deactivate an occupied location")
	}
	l.Active = false
	l.touch()
	return nil
}

func (l *Location) touch() {
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}
