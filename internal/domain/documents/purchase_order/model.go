// Package purchase_order provides the PurchaseOrder document and its
// receipt workflow, which turns ordered lines into inbound stock.
package purchase_order

import (
	"context"
	"time"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/entity"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
)

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	entity.BaseEntity

	// Number is unique (PO{YYYY}{MM}{NNNN} when generated)
	Number string `db:"po_number" json:"poNumber"`

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	OrderDate            time.Time  `db:"order_date" json:"orderDate"`
	ExpectedDeliveryDate *time.Time `db:"expected_delivery_date" json:"expectedDeliveryDate,omitempty"`
	// DeliveryDate is set when the order is received
	DeliveryDate *time.Time `db:"delivery_date" json:"deliveryDate,omitempty"`

	Status Status `db:"status" json:"status"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	ShippingAmount types.Money `db:"shipping_amount" json:"shippingAmount"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	Notes     *string `db:"notes" json:"notes,omitempty"`
	CreatedBy string  `db:"created_by" json:"createdBy,omitempty"`

	// Table part: ordered lines
	Items []Item `db:"-" json:"items"`
}

// Item is an ordered line.
type Item struct {
	ID              id.ID       `db:"id" json:"id"`
	PurchaseOrderID id.ID       `db:"purchase_order_id" json:"purchaseOrderId"`
	LineNo          int         `db:"line_no" json:"lineNo"`
	ProductID       id.ID       `db:"product_id" json:"productId"`
	Quantity        int64       `db:"quantity" json:"quantity"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
	TotalCost       types.Money `db:"total_cost" json:"totalCost"`
	Notes           *string     `db:"notes" json:"notes,omitempty"`
}

// NewPurchaseOrder creates a draft order dated today.
func NewPurchaseOrder(supplierID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		BaseEntity:     entity.NewBaseEntity(),
		SupplierID:     supplierID,
		OrderDate:      time.Now().UTC().Truncate(24 * time.Hour),
		Status:         StatusDraft,
		Subtotal:       types.Zero(),
		TaxAmount:      types.Zero(),
		ShippingAmount: types.Zero(),
		DiscountAmount: types.Zero(),
		TotalAmount:    types.Zero(),
		Items:          make([]Item, 0),
	}
}

// AddItem appends a line and recalculates totals.
func (po *PurchaseOrder) AddItem(productID id.ID, quantity int64, unitCost types.Money) {
	po.Items = append(po.Items, Item{
		ID:        id.New(),
		ProductID: productID,
		Quantity:  quantity,
		UnitCost:  unitCost,
		TotalCost: types.LineTotal(quantity, unitCost),
	})
	po.RecalculateTotals()
}

// RecalculateTotals numbers the lines and derives subtotal and total:
// total = subtotal + tax + shipping - discount. Line totals are taken as
// given; a zero line total stays zero.
func (po *PurchaseOrder) RecalculateTotals() {
	subtotal := types.Zero()
	for i := range po.Items {
		item := &po.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.PurchaseOrderID = po.ID
		item.LineNo = i + 1
		subtotal = subtotal.Add(item.TotalCost)
	}
	po.Subtotal = subtotal
	po.TotalAmount = subtotal.Add(po.TaxAmount).Add(po.ShippingAmount).Sub(po.DiscountAmount)
}

// TotalQuantity sums ordered quantities.
func (po *PurchaseOrder) TotalQuantity() int64 {
	var n int64
	for _, item := range po.Items {
		n += item.Quantity
	}
	return n
}

// CanModify rejects edits of a received order.
func (po *PurchaseOrder) CanModify() error {
	if po.Status == StatusReceived {
		return apperror.NewInvalidState("a received purchase order cannot be modified").
			WithDetail("status", string(po.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(_ context.Context) error {
	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if po.OrderDate.IsZero() {
		return apperror.NewValidation("order date is required").
			WithDetail("field", "orderDate")
	}
	if po.ExpectedDeliveryDate != nil && !po.ExpectedDeliveryDate.After(po.OrderDate) {
		return apperror.NewValidation("expected delivery date must be after the order date").
			WithDetail("field", "expectedDeliveryDate")
	}
	if !po.Status.IsValid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(po.Status))
	}

	amounts := map[string]types.Money{
		"taxAmount":      po.TaxAmount,
		"shippingAmount": po.ShippingAmount,
		"discountAmount": po.DiscountAmount,
	}
	for field, v := range amounts {
		if types.IsNegative(v) {
			return apperror.NewValidation(field + " must not be negative").WithDetail("field", field)
		}
	}

	if len(po.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	for i, item := range po.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items.productId").
				WithDetail("line", i+1)
		}
		if item.Quantity < 1 {
			return apperror.NewValidation("quantity must be at least 1").
				WithDetail("field", "items.quantity").
				WithDetail("line", i+1)
		}
		if types.IsNegative(item.UnitCost) || types.IsNegative(item.TotalCost) {
			return apperror.NewValidation("costs must not be negative").
				WithDetail("field", "items.unitCost").
				WithDetail("line", i+1)
		}
	}

	if types.IsNegative(po.TotalAmount) {
		return apperror.NewValidation("discount exceeds the order value").
			WithDetail("field", "discountAmount")
	}
	return nil
}
