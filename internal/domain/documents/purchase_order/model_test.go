package purchase_order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
)

func TestRecalculateTotals(t *testing.T) {
	po := NewPurchaseOrder(id.New())
	po.TaxAmount = types.MustMoney("1.50")
	po.ShippingAmount = types.MustMoney("3.00")
	po.DiscountAmount = types.MustMoney("0.50")
	po.AddItem(id.New(), 5, types.MustMoney("2.00"))
	po.AddItem(id.New(), 3, types.MustMoney("4.00"))

	assert.True(t, po.Subtotal.Equal(types.MustMoney("22.00")), po.Subtotal.String())
	assert.True(t, po.TotalAmount.Equal(types.MustMoney("26.00")), po.TotalAmount.String())
	assert.Equal(t, int64(8), po.TotalQuantity())
	for i, item := range po.Items {
		assert.Equal(t, i+1, item.LineNo)
		assert.Equal(t, po.ID, item.PurchaseOrderID)
	}
}

func TestRecalculateTotals_KeepsZeroLineTotal(t *testing.T) {
	po := NewPurchaseOrder(id.New())
	po.AddItem(id.New(), 2, types.MustMoney("3.00"))
	po.Items = append(po.Items, Item{ProductID: id.New(), Quantity: 4, UnitCost: types.MustMoney("5.00"), TotalCost: types.Zero()})
	po.RecalculateTotals()

	assert.True(t, po.Items[1].TotalCost.IsZero(), po.Items[1].TotalCost.String())
	assert.True(t, po.Subtotal.Equal(types.MustMoney("6.00")), po.Subtotal.String())
}

func TestValidate(t *testing.T) {
	valid := func() *PurchaseOrder {
		po := NewPurchaseOrder(id.New())
		po.AddItem(id.New(), 1, types.MustMoney("1.00"))
		return po
	}

	tests := []struct {
		name   string
		mutate func(po *PurchaseOrder)
		field  string
	}{
		{"no supplier", func(po *PurchaseOrder) { po.SupplierID = id.ID{} }, "supplierId"},
		{"no items", func(po *PurchaseOrder) { po.Items = nil }, "items"},
		{"zero quantity", func(po *PurchaseOrder) { po.Items[0].Quantity = 0 }, "items.quantity"},
		{"negative tax", func(po *PurchaseOrder) { po.TaxAmount = types.MustMoney("-1") }, "taxAmount"},
		{"delivery before order", func(po *PurchaseOrder) {
			early := po.OrderDate.Add(-24 * time.Hour)
			po.ExpectedDeliveryDate = &early
		}, "expectedDeliveryDate"},
	}

	require.NoError(t, valid().Validate(context.Background()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := valid()
			tt.mutate(po)
			err := po.Validate(context.Background())
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}
