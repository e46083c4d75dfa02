package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	locationapp "github.com/wms/backend/internal/application/location"
)

// LocationHandler handles storage location API endpoints
type LocationHandler struct {
	BaseHandler
	locationService *locationapp.LocationService
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(locationService *locationapp.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// Create registers a new storage location
func (h *LocationHandler) Create(c *gin.Context) {
	var req locationapp.CreateLocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	loc, err := h.locationService.CreateLocation(c.Request.Context(), tenantID(c), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, loc)
}

// Get returns a single location
func (h *LocationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid location id")
		return
	}

	loc, err := h.locationService.FindByID(c.Request.Context(), tenantID(c), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, loc)
}

// GetByCode returns a location by its tenant-unique code
func (h *LocationHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "location code required")
		return
	}

	loc, err := h.locationService.FindByCode(c.Request.Context(), tenantID(c), code)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, loc)
}

// Available lists active locations with free capacity in a zone
func (h *LocationHandler) Available(c *gin.Context) {
	zone := c.Query("zone")
	if zone == "" {
		h.BadRequest(c, "zone query parameter required")
		return
	}
	filter, err := filterFrom(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	locations, err := h.locationService.FindAvailableInZone(c.Request.Context(), tenantID(c), zone, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, locations)
}

// Deactivate takes a location out of service
func (h *LocationHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid location id")
		return
	}

	if err := h.locationService.Deactivate(c.Request.Context(), tenantID(c), id); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the location endpoints on the given group
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	locations := rg.Group("/locations")
	{
		locations.POST("", h.Create)
		locations.GET("/available", h.Available)
		locations.GET("/code/:code", h.GetByCode)
		locations.GET("/:id", h.Get)
		locations.DELETE("/:id", h.Deactivate)
	}
}
