package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/config"
	"stockroom/internal/core/types"
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/domain/ledger"
)

func TestOpenStorage_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}

	s, err := OpenStorage(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}

	_, err := OpenStorage(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewServices_DeleteConstraints(t *testing.T) {
	ctx := context.Background()
	svc := NewServices(NewMemoryStorage(), "")

	cat := category.NewCategory("Fasteners")
	require.NoError(t, svc.Categories.Create(ctx, cat))
	sup := supplier.NewSupplier("Acme")
	require.NoError(t, svc.Suppliers.Create(ctx, sup))
	loc := location.NewLocation("Main", location.TypeWarehouse)
	loc.IsDefault = true
	require.NoError(t, svc.Locations.Create(ctx, loc))

	p := product.NewProduct("Bolt")
	p.CategoryID = &cat.ID
	p.SupplierID = &sup.ID
	require.NoError(t, svc.Products.Create(ctx, p))

	_, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
		ProductID: p.ID, LocationID: loc.ID, Type: ledger.TypeIn, Quantity: 3, UnitCost: types.MustMoney("1.00"),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		delete func() error
	}{
		{"category with products", func() error { return svc.Categories.Delete(ctx, cat.ID) }},
		{"supplier with products", func() error { return svc.Suppliers.Delete(ctx, sup.ID) }},
		{"product with stock", func() error { return svc.Products.Delete(ctx, p.ID) }},
		{"location with stock", func() error { return svc.Locations.Delete(ctx, loc.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperror.HasCode(tt.delete(), apperror.CodeConstraint))
		})
	}
}

func TestNewServices_ProductOnOrderLine(t *testing.T) {
	ctx := context.Background()
	svc := NewServices(NewMemoryStorage(), "")

	sup := supplier.NewSupplier("Acme")
	require.NoError(t, svc.Suppliers.Create(ctx, sup))
	p := product.NewProduct("Bolt")
	require.NoError(t, svc.Products.Create(ctx, p))

	order := po.NewPurchaseOrder(sup.ID)
	order.AddItem(p.ID, 2, types.MustMoney("1.00"))
	require.NoError(t, svc.PurchaseOrders.Create(ctx, order))

	err := svc.Products.Delete(ctx, p.ID)
	require.True(t, apperror.HasCode(err, apperror.CodeConstraint), "err=%v", err)

	_, err = svc.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, svc.PurchaseOrders.Delete(ctx, order.ID))
	assert.NoError(t, svc.Products.Delete(ctx, p.ID))
}

func TestNewServices_ReceiveIntoDefault(t *testing.T) {
	ctx := context.Background()
	svc := NewServices(NewMemoryStorage(), "")

	sup := supplier.NewSupplier("Acme")
	require.NoError(t, svc.Suppliers.Create(ctx, sup))
	loc := location.NewLocation("Dock", location.TypeWarehouse)
	loc.IsDefault = true
	require.NoError(t, svc.Locations.Create(ctx, loc))
	p := product.NewProduct("Nut")
	require.NoError(t, svc.Products.Create(ctx, p))

	order := po.NewPurchaseOrder(sup.ID)
	order.AddItem(p.ID, 4, types.MustMoney("0.50"))
	require.NoError(t, svc.PurchaseOrders.Create(ctx, order))
	for _, st := range []po.Status{po.StatusPending, po.StatusApproved, po.StatusOrdered} {
		_, err := svc.PurchaseOrders.ChangeStatus(ctx, order.ID, st)
		require.NoError(t, err)
	}

	received, err := svc.PurchaseOrders.Receive(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.StatusReceived, received.Status)

	level, err := svc.Ledger.StockLevel(ctx, ledger.StockKey{ProductID: p.ID, LocationID: loc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4), level.Quantity)

	assert.True(t, apperror.HasCode(svc.Suppliers.Delete(ctx, sup.ID), apperror.CodeConstraint))
}
