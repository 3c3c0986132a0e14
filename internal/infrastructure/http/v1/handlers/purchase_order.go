package handlers

import (
	"github.com/gin-gonic/gin"

	"stockroom/internal/core/apperror"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles purchase order endpoints.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *po.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *po.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// List handles GET /documents/purchase-orders.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q dto.PurchaseOrderQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, func(o *po.PurchaseOrder) *po.PurchaseOrder { return o }))
}

// Get handles GET /documents/purchase-orders/:id.
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	poID, ok := h.ParseID(c)
	if !ok {
		return
	}
	order, err := h.service.GetByID(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Create handles POST /documents/purchase-orders.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.PurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), order); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, order)
}

// Update handles PUT /documents/purchase-orders/:id.
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	poID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.PurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Version < 1 {
		h.Error(c, apperror.NewValidation("version is required").WithDetail("field", "version"))
		return
	}

	existing, err := h.service.GetByID(ctx, poID)
	if err != nil {
		h.Error(c, err)
		return
	}

	updated := req.Apply(existing)
	if err := h.service.Update(ctx, updated); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Delete handles DELETE /documents/purchase-orders/:id.
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	poID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), poID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ChangeStatus handles POST /documents/purchase-orders/:id/status.
func (h *PurchaseOrderHandler) ChangeStatus(c *gin.Context) {
	poID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.ChangeStatus(c.Request.Context(), poID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Receive handles POST /documents/purchase-orders/:id/receive.
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	poID, ok := h.ParseID(c)
	if !ok {
		return
	}
	order, err := h.service.Receive(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}
