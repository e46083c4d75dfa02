package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/shared"
)

// outboxRecord is the persistence model for outbox entries. The table lives
// in the public schema so a single dispatcher can drain events from every
// tenant; writes still happen inside the tenant-scoped transaction, which is
// safe because all schemas share one database.
type outboxRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID      string    `gorm:"type:varchar(64);not null;index:idx_outbox_status_created,priority:3"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string    `gorm:"type:varchar(128);not null"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index"`
	AggregateType string    `gorm:"type:varchar(64);not null"`
	CorrelationID uuid.UUID `gorm:"type:uuid"`
	CausationID   uuid.UUID `gorm:"type:uuid"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"type:varchar(16);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount    int       `gorm:"not null;default:0"`
	MaxRetries    int       `gorm:"not null"`
	LastError     string    `gorm:"type:text"`
	NextRetryAt   *time.Time
	AckedAt       *time.Time
	CreatedAt     time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (outboxRecord) TableName() string {
	return "public.event_outbox"
}

func toOutboxRecord(e *shared.OutboxEntry) *outboxRecord {
	return &outboxRecord{
		ID:            e.ID,
		TenantID:      string(e.TenantID),
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		CorrelationID: e.CorrelationID,
		CausationID:   e.CausationID,
		Payload:       e.Payload,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		AckedAt:       e.AckedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toOutboxEntry(r *outboxRecord) *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:            r.ID,
		TenantID:      shared.TenantID(r.TenantID),
		EventID:       r.EventID,
		EventType:     r.EventType,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		CorrelationID: r.CorrelationID,
		CausationID:   r.CausationID,
		Payload:       r.Payload,
		Status:        shared.OutboxStatus(r.Status),
		RetryCount:    r.RetryCount,
		MaxRetries:    r.MaxRetries,
		LastError:     r.LastError,
		NextRetryAt:   r.NextRetryAt,
		AckedAt:       r.AckedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// GormOutboxRepository implements shared.OutboxRepository on the public
// schema outbox table.
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists a single entry outside any aggregate transaction.
func (r *GormOutboxRepository) Save(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).Create(toOutboxRecord(entry)).Error
}

// SaveInTx persists entries within the caller's transaction so the events
// commit or roll back atomically with the aggregate state they describe.
// txProvider must be the *gorm.DB handle of the open transaction.
func (r *GormOutboxRepository) SaveInTx(ctx context.Context, txProvider interface{}, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: unsupported transaction provider %T", txProvider)
	}

	records := make([]*outboxRecord, len(entries))
	for i, e := range entries {
		records[i] = toOutboxRecord(e)
	}
	return tx.WithContext(ctx).Create(records).Error
}

// Update writes back the entry's dispatch state.
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":        string(entry.Status),
			"retry_count":   entry.RetryCount,
			"last_error":    entry.LastError,
			"next_retry_at": entry.NextRetryAt,
			"acked_at":      entry.AckedAt,
			"updated_at":    entry.UpdatedAt,
		}).Error
}

// FindPending retrieves undelivered entries in commit order.
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var records []*outboxRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", string(shared.OutboxStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return toEntries(records), nil
}

// FindRetryable retrieves failed entries whose backoff has elapsed.
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var records []*outboxRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", string(shared.OutboxStatusFailed), now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return toEntries(records), nil
}

// MarkProcessing atomically claims the given entries with
// FOR UPDATE SKIP LOCKED and returns the ones actually claimed. Entries a
// concurrent dispatcher already holds are silently skipped.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []*outboxRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, []string{
				string(shared.OutboxStatusPending),
				string(shared.OutboxStatusFailed),
			}).
			Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		claimed := make([]uuid.UUID, len(records))
		for i, rec := range records {
			claimed[i] = rec.ID
		}

		now := time.Now()
		if err := tx.Model(&outboxRecord{}).
			Where("id IN ?", claimed).
			Updates(map[string]interface{}{
				"status":     string(shared.OutboxStatusProcessing),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for _, rec := range records {
			rec.Status = string(shared.OutboxStatusProcessing)
			rec.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toEntries(records), nil
}

// DeleteOlderThan prunes acked entries older than the cutoff.
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND acked_at < ?", string(shared.OutboxStatusAcked), cutoff).
		Delete(&outboxRecord{})
	return result.RowsAffected, result.Error
}

// FindByID retrieves a single entry by its primary key.
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var record outboxRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toOutboxEntry(&record), nil
}

// FindDead retrieves parked entries for operator inspection, newest first.
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Where("status = ?", string(shared.OutboxStatusDead))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*outboxRecord
	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return toEntries(records), total, nil
}

// CountByStatus returns the number of entries per delivery status.
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[shared.OutboxStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func toEntries(records []*outboxRecord) []*shared.OutboxEntry {
	entries := make([]*shared.OutboxEntry, len(records))
	for i, rec := range records {
		entries[i] = toOutboxEntry(rec)
	}
	return entries
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
