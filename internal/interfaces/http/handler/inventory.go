package handler

import (
	"time"

	inventoryapp "github.com/dairyops/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// InventoryHandler serves the batch ledger and stock status endpoints
type InventoryHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
	stock  *inventoryapp.StockService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *inventoryapp.LedgerService, stock *inventoryapp.StockService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, stock: stock}
}

// RegisterRoutes mounts the inventory endpoints on rg
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	materials := rg.Group("/materials")
	materials.POST("", h.RegisterMaterial)
	materials.GET("", h.ListMaterials)
	materials.GET("/:id", h.GetMaterial)
	materials.GET("/:id/batches", h.ListAvailableBatches)
	materials.GET("/:id/freshness", h.BatchFreshness)
	materials.GET("/:id/stock-status", h.StockStatus)
	materials.GET("/:id/movements", h.ListMovements)
	materials.POST("/:id/consume", h.Consume)

	batches := rg.Group("/batches")
	batches.POST("", h.ReceiveBatch)
	batches.POST("/expiry-sweep", h.SweepExpired)
	batches.GET("/:id", h.GetBatch)
	batches.POST("/:id/approve", h.ApproveBatch)

	rg.GET("/stock/alerts", h.ReorderAlerts)
}

// RegisterMaterial creates or updates a material definition
// POST /api/v1/materials
func (h *InventoryHandler) RegisterMaterial(c *gin.Context) {
	var req inventoryapp.RegisterMaterialCommand
	if !h.bindJSON(c, &req) {
		return
	}
	m, err := h.ledger.RegisterMaterial(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, m)
}

// ListMaterials lists materials
// GET /api/v1/materials
func (h *InventoryHandler) ListMaterials(c *gin.Context) {
	var query inventoryapp.ListMaterialsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	materials, err := h.ledger.ListMaterials(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, materials)
}

// GetMaterial returns one material
// GET /api/v1/materials/:id
func (h *InventoryHandler) GetMaterial(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.ledger.GetMaterial(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// ListAvailableBatches returns the consumable batches of a material in
// FIFO order
// GET /api/v1/materials/:id/batches
func (h *InventoryHandler) ListAvailableBatches(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	batches, err := h.ledger.ListAvailableBatches(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

type freshnessQuery struct {
	At string `form:"at" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// BatchFreshness reports the freshness of each active batch, now or at
// the RFC 3339 instant given in ?at=
// GET /api/v1/materials/:id/freshness
func (h *InventoryHandler) BatchFreshness(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var query freshnessQuery
	if !h.bindQuery(c, &query) {
		return
	}
	var at time.Time
	if query.At != "" {
		// validated by the datetime tag
		at, _ = time.Parse(time.RFC3339, query.At)
	}
	report, err := h.ledger.BatchFreshness(c.Request.Context(), id, at)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// StockStatus returns the stock status and reorder priority of a material
// GET /api/v1/materials/:id/stock-status
func (h *InventoryHandler) StockStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.stock.Assess(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

type movementsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ListMovements returns the newest stock ledger rows of a material
// GET /api/v1/materials/:id/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var query movementsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	movements, err := h.ledger.ListMovements(c.Request.Context(), id, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}

// Consume draws stock of a material across its batches in FIFO order
// POST /api/v1/materials/:id/consume
func (h *InventoryHandler) Consume(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.ConsumeCommand
	if !h.bindJSON(c, &req) {
		return
	}
	req.MaterialID = id
	result, err := h.ledger.Consume(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReceiveBatch records a delivery
// POST /api/v1/batches
func (h *InventoryHandler) ReceiveBatch(c *gin.Context) {
	var req inventoryapp.ReceiveBatchCommand
	if !h.bindJSON(c, &req) {
		return
	}
	b, err := h.ledger.ReceiveBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, b)
}

// GetBatch returns one batch
// GET /api/v1/batches/:id
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// ApproveBatch moves a received batch to APPROVED
// POST /api/v1/batches/:id/approve
func (h *InventoryHandler) ApproveBatch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.ApproveBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

type sweepRequest struct {
	Now *time.Time `json:"now"`
}

// SweepExpired marks expired batches and writes their stock off. The body
// is optional; {"now": ...} sweeps as of another instant.
// POST /api/v1/batches/expiry-sweep
func (h *InventoryHandler) SweepExpired(c *gin.Context) {
	var req sweepRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	var now time.Time
	if req.Now != nil {
		now = *req.Now
	}
	result, err := h.ledger.SweepExpired(c.Request.Context(), now)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReorderAlerts lists materials that need reordering, most urgent first
// GET /api/v1/stock/alerts
func (h *InventoryHandler) ReorderAlerts(c *gin.Context) {
	var query inventoryapp.AlertsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	alerts, err := h.stock.ReorderAlerts(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}
