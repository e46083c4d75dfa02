package stock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

// ExpirySweeper periodically reclassifies stock by expiry for every active
// tenant. Items crossing into EXPIRED emit StockItemExpired through the
// usual outbox path; downstream services react to the event, the sweeper
// itself only reclassifies.
type ExpirySweeper struct {
	items    stock.StockItemRepository
	tenants  ActiveTenantLister
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ActiveTenantLister yields the tenants whose schemas should be swept.
type ActiveTenantLister interface {
	ListActive(ctx context.Context) ([]shared.TenantID, error)
}

func NewExpirySweeper(items stock.StockItemRepository, tenants ActiveTenantLister, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{
		items:    items,
		tenants:  tenants,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the periodic sweep.
func (s *ExpirySweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepAll(ctx)
			}
		}
	}()
	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the sweep and waits for an in-flight pass to finish.
func (s *ExpirySweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// SweepAll runs one pass over every active tenant.
func (s *ExpirySweeper) SweepAll(ctx context.Context) {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active tenants for expiry sweep", zap.Error(err))
		return
	}

	for _, tenantID := range tenants {
		err := tenantctx.RunScoped(ctx, tenantID, func(ctx context.Context) error {
			return s.SweepTenant(ctx, tenantID)
		})
		if err != nil {
			s.logger.Error("expiry sweep failed for tenant",
				zap.String("tenant_id", string(tenantID)),
				zap.Error(err),
			)
		}
	}
}

// SweepTenant reclassifies one tenant's items whose expiry class may have
// changed. Conflicts with concurrent writers are skipped; the next pass
// picks the item up again.
func (s *ExpirySweeper) SweepTenant(ctx context.Context, tenantID shared.TenantID) error {
	now := time.Now()
	cutoff := now.Add(stock.ExpiryWarningWindow)
	filter := shared.Filter{Page: 1, PageSize: 200, OrderBy: "created_at", OrderDir: "asc"}

	for {
		items, err := s.items.FindExpiringBefore(ctx, tenantID, cutoff, filter)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		for i := range items {
			item := &items[i]
			before := item.ExpiryClass
			item.ReclassifyExpiry(now)
			if item.ExpiryClass == before {
				continue
			}

			if err := s.items.Save(ctx, tenantID, item); err != nil {
				s.logger.Warn("expiry reclassification skipped",
					zap.String("stock_item_id", item.ID.String()),
					zap.Error(err),
				)
				continue
			}
			s.logger.Info("stock item reclassified",
				zap.String("stock_item_id", item.ID.String()),
				zap.String("from", string(before)),
				zap.String("to", string(item.ExpiryClass)),
			)
		}

		if len(items) < filter.PageSize {
			return nil
		}
		filter.Page++
	}
}
