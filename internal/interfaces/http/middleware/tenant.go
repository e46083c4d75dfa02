package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/tenantctx"
)

const (
	// TenantIDKey is the gin context key for the resolved tenant slug
	TenantIDKey = "tenant_id"
	// TenantHeaderKey is the request header carrying the tenant slug
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig holds tenant middleware configuration
type TenantConfig struct {
	// SkipPaths are served without a bound tenant, e.g. health checks and
	// tenant onboarding itself.
	SkipPaths []string
	// Validator optionally rejects tenants that are unknown or not active.
	Validator TenantValidator
	Logger    *zap.Logger
}

// TenantValidator checks that a tenant exists and is serving traffic.
type TenantValidator interface {
	ValidateTenant(ctx context.Context, tenantID shared.TenantID) error
}

// Tenant extracts the tenant slug from the X-Tenant-ID header, validates it,
// and binds it into the request context for the persistence router. Requests
// without a resolvable tenant are rejected before any handler runs.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		slug := shared.TenantID(c.GetHeader(TenantHeaderKey))
		if slug.IsZero() {
			rejectTenant(c, http.StatusUnauthorized, "Tenant identification required")
			return
		}
		if err := slug.Validate(); err != nil {
			rejectTenant(c, http.StatusUnauthorized, "Invalid tenant identifier")
			return
		}

		if cfg.Validator != nil {
			if err := cfg.Validator.ValidateTenant(c.Request.Context(), slug); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("tenant rejected",
						zap.String("tenant_id", string(slug)),
						zap.Error(err),
					)
				}
				rejectTenant(c, http.StatusUnauthorized, "Unknown or inactive tenant")
				return
			}
		}

		c.Set(TenantIDKey, string(slug))

		ctx := tenantctx.WithTenant(c.Request.Context(), slug)
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), string(slug))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID returns the tenant bound by the middleware.
func GetTenantID(c *gin.Context) shared.TenantID {
	return shared.TenantID(c.GetString(TenantIDKey))
}

func rejectTenant(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
