package dto

import (
	"time"

	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	po "stockroom/internal/domain/documents/purchase_order"
)

// PurchaseOrderItemRequest is one ordered line.
type PurchaseOrderItemRequest struct {
	ProductID id.ID        `json:"productId"`
	Quantity  int64        `json:"quantity"`
	UnitCost  *types.Money `json:"unitCost"`
	TotalCost *types.Money `json:"totalCost"`
	Notes     *string      `json:"notes"`
}

// PurchaseOrderRequest creates or replaces a purchase order.
type PurchaseOrderRequest struct {
	Number               string                     `json:"poNumber"`
	SupplierID           id.ID                      `json:"supplierId"`
	OrderDate            *time.Time                 `json:"orderDate"`
	ExpectedDeliveryDate *time.Time                 `json:"expectedDeliveryDate"`
	Status               *po.Status                 `json:"status"`
	TaxAmount            *types.Money               `json:"taxAmount"`
	ShippingAmount       *types.Money               `json:"shippingAmount"`
	DiscountAmount       *types.Money               `json:"discountAmount"`
	Notes                *string                    `json:"notes"`
	Items                []PurchaseOrderItemRequest `json:"items"`
	// Version is required on update
	Version int `json:"version"`
}

// ToEntity builds a new draft order.
func (r PurchaseOrderRequest) ToEntity() *po.PurchaseOrder {
	order := po.NewPurchaseOrder(r.SupplierID)
	r.fill(order)
	return order
}

// Apply replaces the editable fields of existing. An empty number keeps
// the current one.
func (r PurchaseOrderRequest) Apply(order *po.PurchaseOrder) *po.PurchaseOrder {
	r.fill(order)
	order.Version = r.Version
	return order
}

func (r PurchaseOrderRequest) fill(order *po.PurchaseOrder) {
	if r.Number != "" {
		order.Number = r.Number
	}
	order.SupplierID = r.SupplierID
	if r.OrderDate != nil {
		order.OrderDate = r.OrderDate.UTC()
	}
	order.ExpectedDeliveryDate = r.ExpectedDeliveryDate
	pick(&order.Status, r.Status)
	pick(&order.TaxAmount, r.TaxAmount)
	pick(&order.ShippingAmount, r.ShippingAmount)
	pick(&order.DiscountAmount, r.DiscountAmount)
	order.Notes = r.Notes

	order.Items = make([]po.Item, 0, len(r.Items))
	for _, line := range r.Items {
		item := po.Item{
			ID:        id.New(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  types.Zero(),
			Notes:     line.Notes,
		}
		pick(&item.UnitCost, line.UnitCost)
		if line.TotalCost != nil {
			item.TotalCost = *line.TotalCost
		} else {
			item.TotalCost = types.LineTotal(item.Quantity, item.UnitCost)
		}
		order.Items = append(order.Items, item)
	}
	order.RecalculateTotals()
}

// ChangeStatusRequest moves an order along its status graph.
type ChangeStatusRequest struct {
	Status po.Status `json:"status" binding:"required"`
}

// PurchaseOrderQuery is the query string of the order list.
type PurchaseOrderQuery struct {
	Search     string     `form:"search"`
	SupplierID string     `form:"supplierId"`
	Statuses   []string   `form:"status"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit      int        `form:"limit" binding:"omitempty,min=0"`
	Offset     int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into an order filter.
func (q PurchaseOrderQuery) ToFilter() (po.ListFilter, error) {
	f := po.ListFilter{
		Search:   q.Search,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	var err error
	if f.SupplierID, err = parseID("supplierId", q.SupplierID); err != nil {
		return f, err
	}
	for _, s := range q.Statuses {
		f.Statuses = append(f.Statuses, po.Status(s))
	}
	return f, nil
}
