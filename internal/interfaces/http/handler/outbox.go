package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventapp "github.com/wms/backend/internal/application/event"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// OutboxHandler exposes operator endpoints over the event outbox. Like
// tenant onboarding these run outside the tenant middleware: the outbox
// spans every tenant schema.
type OutboxHandler struct {
	BaseHandler
	outboxService *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// Stats returns per-status outbox counts
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDead returns parked entries, newest first
func (h *OutboxHandler) ListDead(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.outboxService.ListDead(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, result)
}

// GetEntry returns a single outbox entry
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid entry id")
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, entry)
}

// RequeueDead resets a parked entry for redelivery
func (h *OutboxHandler) RequeueDead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid entry id")
		return
	}

	entry, err := h.outboxService.RequeueDead(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, entry)
}

// RequeueAllDead resets every parked entry for redelivery
func (h *OutboxHandler) RequeueAllDead(c *gin.Context) {
	count, err := h.outboxService.RequeueAllDead(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"requeued": count})
}

// PurgeAcked removes acked entries older than the retention window
func (h *OutboxHandler) PurgeAcked(c *gin.Context) {
	req := struct {
		RetentionHours int `json:"retention_hours" binding:"omitempty,min=1"`
	}{RetentionHours: 24 * 7}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	if req.RetentionHours == 0 {
		req.RetentionHours = 24 * 7
	}

	removed, err := h.outboxService.PurgeAcked(c.Request.Context(), time.Duration(req.RetentionHours)*time.Hour)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"removed": removed})
}

// RegisterRoutes mounts the outbox admin endpoints on the given group
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	{
		outbox.GET("/stats", h.Stats)
		outbox.GET("/dead", h.ListDead)
		outbox.GET("/entries/:id", h.GetEntry)
		outbox.POST("/entries/:id/requeue", h.RequeueDead)
		outbox.POST("/dead/requeue", h.RequeueAllDead)
		outbox.POST("/purge", h.PurgeAcked)
	}
}
