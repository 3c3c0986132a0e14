package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockroom/internal/core/id"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes the ledger: movements and stock levels.
type InventoryHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *ledger.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// ListTransactions handles GET /inventory/transactions.
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	var q dto.TransactionQuery
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
	h.OK(c, dto.NewListResponse(res, func(t *ledger.Transaction) *ledger.Transaction { return t }))
}

// GetTransaction handles GET /inventory/transactions/:id.
func (h *InventoryHandler) GetTransaction(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// CreateTransaction handles POST /inventory/transactions.
func (h *InventoryHandler) CreateTransaction(c *gin.Context) {
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, level, err := h.service.Apply(c.Request.Context(), req.ToInput(h.GetUserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.ApplyResponse{Transaction: t, StockLevel: level})
}

// UpdateTransaction handles PUT /inventory/transactions/:id.
func (h *InventoryHandler) UpdateTransaction(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Edit(c.Request.Context(), txID, req.ToInput(h.GetUserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// DeleteTransaction handles DELETE /inventory/transactions/:id.
func (h *InventoryHandler) DeleteTransaction(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), txID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// TransactionHistory handles GET /inventory/transactions/:id/history.
func (h *InventoryHandler) TransactionHistory(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), txID, h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

// Summary handles GET /inventory/transactions/summary.
func (h *InventoryHandler) Summary(c *gin.Context) {
	var q dto.TransactionQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// Stock handles GET /inventory/stock. With both productId and locationId a
// single level is returned; otherwise the matching levels.
func (h *InventoryHandler) Stock(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	if filter.ProductID != nil && filter.LocationID != nil {
		level, err := h.service.StockLevel(ctx, ledger.StockKey{ProductID: *filter.ProductID, LocationID: *filter.LocationID})
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, level)
		return
	}

	levels, err := h.service.StockLevels(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if levels == nil {
		levels = []*ledger.StockLevel{}
	}
	h.OK(c, gin.H{"items": levels})
}

// ProductStock handles GET /inventory/stock/products/:id.
func (h *InventoryHandler) ProductStock(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	stock, err := h.service.ProductStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stock)
}

// ProductHistory handles GET /inventory/history/products/:id.
func (h *InventoryHandler) ProductHistory(c *gin.Context) {
	h.movementHistory(c, h.service.ProductHistory)
}

// LocationHistory handles GET /inventory/history/locations/:id.
func (h *InventoryHandler) LocationHistory(c *gin.Context) {
	h.movementHistory(c, h.service.LocationHistory)
}

func (h *InventoryHandler) movementHistory(c *gin.Context, fetch func(context.Context, id.ID, int) ([]*ledger.Transaction, error)) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}
	items, err := fetch(c.Request.Context(), entityID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []*ledger.Transaction{}
	}
	h.OK(c, gin.H{"items": items})
}
