package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
)

// OutboxPublisher persists domain events to the outbox within the caller's
// transaction, so event publication commits atomically with the aggregate
// write that produced the events.
type OutboxPublisher struct {
	serializer *EventSerializer
	repo       *GormOutboxRepository
}

func NewOutboxPublisher(serializer *EventSerializer, repo *GormOutboxRepository) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer, repo: repo}
}

// PublishWithTx serializes and stages events inside the given transaction.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return p.repo.SaveInTx(ctx, tx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: unsupported transaction provider %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
