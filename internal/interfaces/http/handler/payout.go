package handler

import (
	payoutapp "github.com/dairyops/backend/internal/application/payout"
	"github.com/gin-gonic/gin"
)

// PayoutHandler serves farmer collections and payouts
type PayoutHandler struct {
	BaseHandler
	payouts *payoutapp.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts *payoutapp.PayoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// RegisterRoutes mounts the collection and payout endpoints on rg
func (h *PayoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	collections := rg.Group("/collections")
	collections.POST("", h.RecordCollection)
	collections.GET("", h.ListCollections)
	collections.POST("/:id/void", h.VoidCollection)

	payouts := rg.Group("/payouts")
	payouts.POST("/preview", h.Preview)
	payouts.POST("", h.Generate)
	payouts.GET("", h.List)
	payouts.GET("/:id", h.Get)
	payouts.POST("/:id/approve", h.Approve)
	payouts.POST("/:id/pay", h.MarkPaid)
	payouts.DELETE("/:id", h.Delete)
}

// RecordCollection records a farmer delivery
// POST /api/v1/collections
func (h *PayoutHandler) RecordCollection(c *gin.Context) {
	var req payoutapp.RecordCollectionCommand
	if !h.bindJSON(c, &req) {
		return
	}
	collection, err := h.payouts.RecordCollection(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, collection)
}

// ListCollections lists a supplier's collections in a period
// GET /api/v1/collections?supplier_id=&from=&to=
func (h *PayoutHandler) ListCollections(c *gin.Context) {
	var query payoutapp.ListCollectionsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	collections, err := h.payouts.ListCollections(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, collections)
}

// VoidCollection excludes a collection from future payouts
// POST /api/v1/collections/:id/void
func (h *PayoutHandler) VoidCollection(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req payoutapp.VoidCollectionCommand
	if !h.bindJSON(c, &req) {
		return
	}
	collection, err := h.payouts.VoidCollection(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, collection)
}

// Preview aggregates a period without saving anything
// POST /api/v1/payouts/preview
func (h *PayoutHandler) Preview(c *gin.Context) {
	var req payoutapp.GeneratePayoutCommand
	if !h.bindJSON(c, &req) {
		return
	}
	preview, err := h.payouts.PreviewPayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Generate creates a DRAFT payout for a supplier and period
// POST /api/v1/payouts
func (h *PayoutHandler) Generate(c *gin.Context) {
	var req payoutapp.GeneratePayoutCommand
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.payouts.GeneratePayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// List returns a page of payouts
// GET /api/v1/payouts
func (h *PayoutHandler) List(c *gin.Context) {
	var query payoutapp.ListPayoutsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	payouts, total, err := h.payouts.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter := query.ToFilter()
	h.SuccessWithMeta(c, payouts, total, filter.Page, filter.PageSize)
}

// Get returns one payout
// GET /api/v1/payouts/:id
func (h *PayoutHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Approve moves a DRAFT payout to APPROVED
// POST /api/v1/payouts/:id/approve
func (h *PayoutHandler) Approve(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.Approve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// MarkPaid moves an APPROVED payout to PAID. The body is optional.
// POST /api/v1/payouts/:id/pay
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req payoutapp.MarkPaidCommand
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	p, err := h.payouts.MarkPaid(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Delete removes a DRAFT payout and releases its collections
// DELETE /api/v1/payouts/:id
func (h *PayoutHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.payouts.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
