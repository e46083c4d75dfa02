package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	eventapp "github.com/wms/backend/internal/application/event"
	locationapp "github.com/wms/backend/internal/application/location"
	stockapp "github.com/wms/backend/internal/application/stock"
	tenantapp "github.com/wms/backend/internal/application/tenant"
	"github.com/wms/backend/internal/domain/location"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/domain/tenant"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/resilience"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage.
	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	provisioner := persistence.NewSchemaProvisioner(sqlDB, cfg.Database.DSN(), cfg.Database.MigrationsPath, log)
	tenantRouter := persistence.NewRouter(db.DB, provisioner, log)

	// Outbox and event plumbing.
	serializer := event.NewDomainEventSerializer()
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	publisher := event.NewOutboxPublisher(serializer, outboxRepo)

	// Repositories, optionally wrapped with the Redis cache.
	var stockItems stock.StockItemRepository = persistence.NewGormStockItemRepository(tenantRouter, publisher)
	var locations location.LocationRepository = persistence.NewGormLocationRepository(tenantRouter, publisher)
	movements := persistence.NewGormStockMovementRepository(tenantRouter)
	allocations := persistence.NewGormStockAllocationRepository(tenantRouter, publisher)
	tenants := persistence.NewGormTenantRepository(db.DB, publisher)

	var idempotency shared.IdempotencyStore
	var cacheStore *cache.RedisStore
	if cfg.Cache.Enabled {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheStore, err = cache.NewRedisStore(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer cacheStore.Close() //nolint:errcheck

		stockItems = cache.NewCachedStockItemRepository(stockItems, cacheStore, cfg.Cache.StockItemTTL, log)
		locations = cache.NewCachedLocationRepository(locations, cacheStore, cfg.Cache.LocationTTL, log)

		store, err := cache.NewRedisIdempotencyStore(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		idempotency = store
	} else {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close() //nolint:errcheck
		idempotency = store
	}

	// Application services.
	productResolver := resilience.NewProductServiceResolver(cfg.Product, cfg.Breaker, log)
	stockService := stockapp.NewStockService(stockItems, movements, allocations, locations, log)
	locationService := locationapp.NewLocationService(locations, log)
	tenantService := tenantapp.NewTenantService(tenants, provisioner, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Event consumers.
	registry := event.NewHandlerRegistry()
	consignments := stockapp.NewConsignmentAcceptedHandler(stockItems, movements, productResolver, log)
	registry.Register(consignments, consignments.EventTypes()...)
	assignments := locationapp.NewAssignmentHandler(locations, movements, log)
	registry.Register(assignments, assignments.EventTypes()...)
	if cacheStore != nil {
		// Wildcard subscriber, sees every event and evicts affected entries.
		registry.Register(cache.NewInvalidator(cacheStore, log))
	}

	consumer := event.NewConsumer(registry, serializer, idempotency, log).
		WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}).
		WithConflictRetryConfig(event.ConflictRetryConfig{
			MaxAttempts: cfg.Event.ConflictRetries,
			BaseBackoff: cfg.Event.ConflictBackoff,
		})

	var dispatcher *event.Dispatcher
	if cfg.Event.DispatcherEnabled {
		dispatcher = event.NewDispatcher(outboxRepo, consumer, event.DispatcherConfig{
			Partitions:       cfg.Event.Partitions,
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}, log)
		if err := dispatcher.Start(ctx); err != nil {
			return fmt.Errorf("dispatcher: %w", err)
		}
	}

	sweeper := stockapp.NewExpirySweeper(stockItems, tenants, time.Hour, log)
	sweeper.Start(ctx)

	// HTTP surface.
	engine := router.New(router.Config{
		Logger:          log,
		CORS:            middleware.DefaultCORSConfig(),
		TenantValidator: &activeTenantValidator{tenants: tenants},
		System:          handler.NewSystemHandler(dbPinger{db}, cachePinger{cacheStore}),
		Tenants:         handler.NewTenantHandler(tenantService),
		Stock:           handler.NewStockHandler(stockService),
		Locations:       handler.NewLocationHandler(locationService),
		Outbox:          handler.NewOutboxHandler(outboxService),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	sweeper.Stop()
	if dispatcher != nil {
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Warn("dispatcher shutdown incomplete", zap.Error(err))
		}
	}
	return nil
}

// activeTenantValidator admits only tenants registered and active.
type activeTenantValidator struct {
	tenants tenant.Repository
}

func (v *activeTenantValidator) ValidateTenant(ctx context.Context, tenantID shared.TenantID) error {
	t, err := v.tenants.FindBySlug(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.Status != tenant.StatusActive {
		return fmt.Errorf("tenant %s is %s", tenantID, t.Status)
	}
	return nil
}

type dbPinger struct {
	db *persistence.Database
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.Ping()
}

type cachePinger struct {
	store *cache.RedisStore
}

func (p cachePinger) Ping(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	return p.store.Ping(ctx)
}
