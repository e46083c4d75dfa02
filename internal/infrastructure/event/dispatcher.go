package event

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

// DispatcherConfig holds configuration for the partitioned dispatcher.
type DispatcherConfig struct {
	Partitions       int
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Partitions:       8,
		BatchSize:        100,
		PollInterval:     time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Dispatcher drains the outbox and feeds claimed entries to partition
// workers. Entries are routed by aggregate ID, so all events of one
// aggregate flow through the same worker in commit order while different
// aggregates process concurrently. A worker acks an entry only after the
// consumer reaches a durable disposition; transient failures schedule
// redelivery with backoff and eventually park the entry as DEAD.
type Dispatcher struct {
	repo     shared.OutboxRepository
	consumer *Consumer
	config   DispatcherConfig
	logger   *zap.Logger

	partitions []chan *shared.OutboxEntry
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewDispatcher(repo shared.OutboxRepository, consumer *Consumer, config DispatcherConfig, log *zap.Logger) *Dispatcher {
	if config.Partitions <= 0 {
		config.Partitions = DefaultDispatcherConfig().Partitions
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultDispatcherConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultDispatcherConfig().PollInterval
	}
	return &Dispatcher{
		repo:     repo,
		consumer: consumer,
		config:   config,
		logger:   log,
	}
}

// Start launches the partition workers, the poll loop, and the cleanup loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.partitions = make([]chan *shared.OutboxEntry, d.config.Partitions)
	for i := range d.partitions {
		d.partitions[i] = make(chan *shared.OutboxEntry, d.config.BatchSize)
		d.wg.Add(1)
		go d.partitionWorker(ctx, i, d.partitions[i])
	}

	d.wg.Add(1)
	go d.pollLoop(ctx)

	if d.config.CleanupEnabled {
		d.wg.Add(1)
		go d.cleanupLoop(ctx)
	}

	d.logger.Info("event dispatcher started",
		zap.Int("partitions", d.config.Partitions),
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight messages to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pollBatch(ctx)
		}
	}
}

func (d *Dispatcher) pollBatch(ctx context.Context) {
	pending, err := d.repo.FindPending(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	d.claimAndRoute(ctx, pending)

	retryable, err := d.repo.FindRetryable(ctx, time.Now(), d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	d.claimAndRoute(ctx, retryable)
}

// claimAndRoute atomically claims the candidates and hands each claimed
// entry to its partition. Entries a concurrent instance claimed first are
// dropped here and delivered by that instance.
func (d *Dispatcher) claimAndRoute(ctx context.Context, entries []*shared.OutboxEntry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	claimed, err := d.repo.MarkProcessing(ctx, ids)
	if err != nil {
		d.logger.Error("failed to claim entries", zap.Error(err))
		return
	}

	for _, entry := range claimed {
		p := d.partitionFor(entry.AggregateID)
		select {
		case <-ctx.Done():
			return
		case d.partitions[p] <- entry:
		}
	}
}

// partitionFor routes by aggregate ID so per-aggregate ordering holds.
func (d *Dispatcher) partitionFor(aggregateID uuid.UUID) int {
	h := fnv.New32a()
	h.Write(aggregateID[:])
	return int(h.Sum32() % uint32(d.config.Partitions))
}

func (d *Dispatcher) partitionWorker(ctx context.Context, partition int, ch <-chan *shared.OutboxEntry) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-ch:
			d.deliver(ctx, partition, entry)
		}
	}
}

// deliver runs one entry through the consumer under a tenant-scoped context
// and settles the outcome in the outbox.
func (d *Dispatcher) deliver(ctx context.Context, partition int, entry *shared.OutboxEntry) {
	log := d.logger.With(
		zap.Int("partition", partition),
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	var disposition Disposition
	err := tenantctx.RunScoped(ctx, entry.TenantID, func(ctx context.Context) error {
		ctx, _ = logger.WithCorrelationID(ctx, logger.FromContext(ctx), entry.CorrelationID.String())
		var consumeErr error
		disposition, consumeErr = d.consumer.Consume(ctx, entry)
		return consumeErr
	})
	if err != nil {
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("entry parked as dead letter",
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("retry_count", entry.RetryCount),
				zap.String("last_error", entry.LastError),
			)
		} else {
			log.Debug("transient consume failure, scheduled for redelivery",
				zap.Int("retry_count", entry.RetryCount),
				zap.Error(err),
			)
		}
		if updateErr := d.repo.Update(ctx, entry); updateErr != nil {
			log.Error("failed to settle failed entry", zap.Error(updateErr))
		}
		return
	}

	entry.MarkAcked()
	if err := d.repo.Update(ctx, entry); err != nil {
		// The effect is durable but the ack is not; redelivery is absorbed
		// by the idempotency store on the next pass.
		log.Error("failed to ack entry", zap.Error(err))
		return
	}
	log.Debug("entry acked", zap.String("disposition", string(disposition)))
}

func (d *Dispatcher) cleanupLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cleanup(ctx)
		}
	}
}

func (d *Dispatcher) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-d.config.CleanupRetention)
	deleted, err := d.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		d.logger.Error("failed to prune acked entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		d.logger.Info("pruned acked outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
