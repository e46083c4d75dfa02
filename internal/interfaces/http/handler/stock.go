package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	stockapp "github.com/wms/backend/internal/application/stock"
)

// StockHandler handles stock item API endpoints
type StockHandler struct {
	BaseHandler
	stockService *stockapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *stockapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// ReceiveStockRequest is the body for a manual stock receipt
type ReceiveStockRequest struct {
	ProductID   uuid.UUID  `json:"product_id" binding:"required"`
	ProductCode string     `json:"product_code" binding:"required,max=64"`
	BatchNumber string     `json:"batch_number" binding:"required,max=64"`
	Quantity    float64    `json:"quantity" binding:"required,gt=0"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// Receive creates a stock item for goods received outside the consignment flow
func (h *StockHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.stockService.ReceiveStock(c.Request.Context(), tenantID(c),
		req.ProductID, req.ProductCode, req.BatchNumber, decimal.NewFromFloat(req.Quantity), req.ExpiryDate)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// Get returns a single stock item
func (h *StockHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}

	item, err := h.stockService.FindByID(c.Request.Context(), tenantID(c), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, item)
}

// ListByProduct returns the stock items of a product
func (h *StockHandler) ListByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}
	filter, err := filterFrom(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, err := h.stockService.ListByProduct(c.Request.Context(), tenantID(c), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, items)
}

// Movements returns the movement journal of a stock item
func (h *StockHandler) Movements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}
	filter, err := filterFrom(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	movements, err := h.stockService.Movements(c.Request.Context(), tenantID(c), id, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, movements)
}

// AssignLocationRequest is the body for storing an item at a location
type AssignLocationRequest struct {
	LocationID uuid.UUID `json:"location_id" binding:"required"`
}

// AssignLocation stores a stock item at a location
func (h *StockHandler) AssignLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}
	var req AssignLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.stockService.AssignLocation(c.Request.Context(), tenantID(c), id, req.LocationID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ReleaseLocation removes a stock item from its location
func (h *StockHandler) ReleaseLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}

	if err := h.stockService.ReleaseLocation(c.Request.Context(), tenantID(c), id); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AllocateRequest is the body for reserving stock for an order line
type AllocateRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	OrderLineID uuid.UUID `json:"order_line_id" binding:"required"`
	Quantity    float64   `json:"quantity" binding:"required,gt=0"`
}

// Allocate reserves quantity on a stock item for an order line
func (h *StockHandler) Allocate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocation, err := h.stockService.Allocate(c.Request.Context(), tenantID(c),
		req.OrderID, req.OrderLineID, id, decimal.NewFromFloat(req.Quantity))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, allocation)
}

// ReleaseAllocation returns a reservation to the available pool
func (h *StockHandler) ReleaseAllocation(c *gin.Context) {
	allocationID, err := uuid.Parse(c.Param("allocationId"))
	if err != nil {
		h.BadRequest(c, "invalid allocation id")
		return
	}

	if err := h.stockService.ReleaseAllocation(c.Request.Context(), tenantID(c), allocationID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AdjustQuantityRequest is the body for a stock-count correction
type AdjustQuantityRequest struct {
	NewQuantity float64 `json:"new_quantity" binding:"gte=0"`
	Reason      string  `json:"reason" binding:"required,max=256"`
}

// AdjustQuantity applies a stock-count correction
func (h *StockHandler) AdjustQuantity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid stock item id")
		return
	}
	var req AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.stockService.AdjustQuantity(c.Request.Context(), tenantID(c), id,
		decimal.NewFromFloat(req.NewQuantity), req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the stock endpoints on the given group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock-items")
	{
		stock.POST("", h.Receive)
		stock.GET("/:id", h.Get)
		stock.GET("/:id/movements", h.Movements)
		stock.PUT("/:id/location", h.AssignLocation)
		stock.DELETE("/:id/location", h.ReleaseLocation)
		stock.POST("/:id/allocations", h.Allocate)
		stock.PUT("/:id/quantity", h.AdjustQuantity)
	}
	rg.DELETE("/allocations/:allocationId", h.ReleaseAllocation)
	rg.GET("/products/:productId/stock-items", h.ListByProduct)
}
