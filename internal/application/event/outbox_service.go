package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// OutboxAdminRepository is the slice of outbox persistence the admin surface
// needs. The dispatcher owns claiming and acking; this side only inspects,
// requeues, and purges.
type OutboxAdminRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxService exposes operator actions on the outbox: inspecting parked
// entries, requeueing them after the underlying fault is fixed, and purging
// acked history.
type OutboxService struct {
	repo   OutboxAdminRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox admin service
func NewOutboxService(repo OutboxAdminRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryDTO is the wire representation of an outbox entry
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	AckedAt       *time.Time `json:"acked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxListResult is a paginated page of outbox entries
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO summarizes the outbox by delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Acked      int64 `json:"acked"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead retrieves parked entries with pagination, newest first.
func (s *OutboxService) ListDead(ctx context.Context, page, pageSize int) (*OutboxListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}

	return &OutboxListResult{
		Entries:    dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetEntry retrieves a single outbox entry by ID.
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RequeueDead returns a parked entry to the dispatch queue with a fresh
// redelivery budget.
func (s *OutboxService) RequeueDead(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("dead outbox entry requeued",
		zap.String("entry_id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", string(entry.TenantID)))

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RequeueAllDead requeues every parked entry and returns how many were reset.
// Entries that fail to update are skipped so one bad row does not block the
// rest of the queue.
func (s *OutboxService) RequeueAllDead(ctx context.Context) (int64, error) {
	var count int64
	const pageSize = 100

	for {
		// Requeued entries leave DEAD, so page one always holds the
		// remaining work.
		entries, _, err := s.repo.FindDead(ctx, 1, pageSize)
		if err != nil {
			return count, err
		}
		if len(entries) == 0 {
			break
		}

		var reset int64
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Warn("failed to requeue dead outbox entry",
					zap.String("entry_id", entry.ID.String()), zap.Error(err))
				continue
			}
			reset++
		}
		count += reset

		if reset == 0 {
			break
		}
	}

	s.logger.Info("requeued dead outbox entries", zap.Int64("count", count))
	return count, nil
}

// Stats returns per-status entry counts.
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Acked:      counts[shared.OutboxStatusAcked],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

// PurgeAcked deletes acked entries older than the retention window and
// returns how many rows were removed.
func (s *OutboxService) PurgeAcked(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged acked outbox entries",
			zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		TenantID:      string(entry.TenantID),
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		AckedAt:       entry.AckedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
