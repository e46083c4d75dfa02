package handler

import (
	"github.com/gin-gonic/gin"

	tenantapp "github.com/wms/backend/internal/application/tenant"
	"github.com/wms/backend/internal/domain/shared"
)

// TenantHandler handles tenant onboarding endpoints. These run outside the
// tenant middleware: the caller is an operator, not a tenant.
type TenantHandler struct {
	BaseHandler
	tenantService *tenantapp.TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenantService *tenantapp.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Register onboards a new tenant
func (h *TenantHandler) Register(c *gin.Context) {
	var req tenantapp.RegisterTenantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	t, err := h.tenantService.Register(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t)
}

// Get returns a tenant registry row
func (h *TenantHandler) Get(c *gin.Context) {
	t, err := h.tenantService.FindBySlug(c.Request.Context(), shared.TenantID(c.Param("slug")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, t)
}

// Activate resumes onboarding or reactivates a suspended tenant
func (h *TenantHandler) Activate(c *gin.Context) {
	t, err := h.tenantService.Activate(c.Request.Context(), shared.TenantID(c.Param("slug")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, t)
}

// Suspend takes a tenant out of service
func (h *TenantHandler) Suspend(c *gin.Context) {
	t, err := h.tenantService.Suspend(c.Request.Context(), shared.TenantID(c.Param("slug")))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, t)
}

// RegisterRoutes mounts the tenant endpoints on the given group
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants")
	{
		tenants.POST("", h.Register)
		tenants.GET("/:slug", h.Get)
		tenants.POST("/:slug/activate", h.Activate)
		tenants.POST("/:slug/suspend", h.Suspend)
	}
}
