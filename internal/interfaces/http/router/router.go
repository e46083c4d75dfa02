package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

// Config carries the handlers and cross-cutting settings for the HTTP surface.
type Config struct {
	Logger          *zap.Logger
	Mode            string
	CORS            middleware.CORSConfig
	TenantValidator middleware.TenantValidator

	System    *handler.SystemHandler
	Tenants   *handler.TenantHandler
	Stock     *handler.StockHandler
	Locations *handler.LocationHandler
	Outbox    *handler.OutboxHandler
}

// tenantFreePaths are served without a bound tenant: probes, tenant
// onboarding itself, and the cross-tenant outbox admin surface.
var tenantFreePaths = []string{"/health", "/ready", "/api/v1/tenants", "/api/v1/outbox"}

// New assembles the gin engine. Tenant-scoped routes run behind the tenant
// middleware; onboarding and probes stay outside it.
func New(cfg Config) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(func(c *gin.Context) {
		// Seed the request context with the base logger so downstream
		// enrichment has something to build on.
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), cfg.Logger))
		c.Next()
	})
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORSWithConfig(cfg.CORS))
	r.Use(middleware.Tenant(middleware.TenantConfig{
		SkipPaths: tenantFreePaths,
		Validator: cfg.TenantValidator,
		Logger:    cfg.Logger,
	}))

	if cfg.System != nil {
		cfg.System.RegisterRoutes(r)
	}

	api := r.Group("/api/v1")
	if cfg.Tenants != nil {
		cfg.Tenants.RegisterRoutes(api)
	}
	if cfg.Stock != nil {
		cfg.Stock.RegisterRoutes(api)
	}
	if cfg.Locations != nil {
		cfg.Locations.RegisterRoutes(api)
	}
	if cfg.Outbox != nil {
		cfg.Outbox.RegisterRoutes(api)
	}
	return r
}
