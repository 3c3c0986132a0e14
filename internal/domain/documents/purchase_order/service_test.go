package purchase_order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/numerator"
	"stockroom/internal/core/types"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx       context.Context
	repos     *memory.Repositories
	ledger    *ledger.Service
	locations *location.Service
	svc       *po.Service

	supplierID id.ID
	productID  id.ID
	dockID     id.ID
}

func newFixture(t *testing.T, receivingCode string) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()

	f := &fixture{ctx: ctx, repos: repos}
	f.ledger = ledger.NewService(ledger.Config{
		Stock:        repos.StockLevels,
		Transactions: repos.Transactions,
		Products:     repos.Products,
		Locations:    repos.Locations,
		TxManager:    repos.Store,
		Audit:        repos.Audit,
	})
	f.locations = location.NewService(repos.Locations, repos.Store)
	f.svc = po.NewService(po.Config{
		Repo:       repos.PurchaseOrders,
		Ledger:     f.ledger,
		Locations:  location.NewReceivingResolver(f.locations, receivingCode),
		Suppliers:  repos.Suppliers,
		Products:   repos.Products,
		Referenced: f.ledger.Referenced(ledger.RefPurchaseOrder),
		Numerator:  repos.Numerator,
		TxManager:  repos.Store,
		Audit:      repos.Audit,
	})

	s := supplier.NewSupplier("Acme")
	s.Code = "ACME00"
	require.NoError(t, repos.Suppliers.Create(ctx, s))
	f.supplierID = s.ID

	p := product.NewProduct("Widget")
	p.SKU = "WIDGET00"
	require.NoError(t, repos.Products.Create(ctx, p))
	f.productID = p.ID

	return f
}

func (f *fixture) withDock(t *testing.T, isDefault bool) {
	t.Helper()
	dock := location.NewLocation("Dock", location.TypeRoom)
	dock.Code = "DOCK"
	dock.IsDefault = isDefault
	require.NoError(t, f.locations.Create(f.ctx, dock))
	f.dockID = dock.ID
}

func (f *fixture) newOrder(t *testing.T) *po.PurchaseOrder {
	t.Helper()
	order := po.NewPurchaseOrder(f.supplierID)
	order.AddItem(f.productID, 5, types.MustMoney("2.00"))
	order.AddItem(f.productID, 3, types.MustMoney("4.00"))
	require.NoError(t, f.svc.Create(f.ctx, order))
	return order
}

func (f *fixture) advance(t *testing.T, poID id.ID, steps ...po.Status) {
	t.Helper()
	for _, s := range steps {
		_, err := f.svc.ChangeStatus(f.ctx, poID, s)
		require.NoError(t, err, "-> %s", s)
	}
}

func (f *fixture) ordered(t *testing.T) *po.PurchaseOrder {
	t.Helper()
	order := f.newOrder(t)
	f.advance(t, order.ID, po.StatusPending, po.StatusApproved, po.StatusOrdered)
	return order
}

func (f *fixture) dockQuantity(t *testing.T) int64 {
	t.Helper()
	level, err := f.ledger.StockLevel(f.ctx, ledger.StockKey{ProductID: f.productID, LocationID: f.dockID})
	if apperror.IsNotFound(err) {
		return 0
	}
	require.NoError(t, err)
	return level.Quantity
}

func TestReceive_BooksEveryLine(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)
	order := f.ordered(t)

	received, err := f.svc.Receive(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.StatusReceived, received.Status)
	require.NotNil(t, received.DeliveryDate)
	assert.Equal(t, int64(8), f.dockQuantity(t))

	refType := ledger.RefPurchaseOrder
	res, err := f.ledger.List(f.ctx, ledger.TransactionFilter{ReferenceType: &refType, ReferenceID: &order.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	for _, tx := range res.Items {
		assert.Equal(t, ledger.TypeIn, tx.Type)
		assert.Equal(t, f.dockID, tx.LocationID)
		require.NotNil(t, tx.ReferenceNumber)
		assert.Equal(t, order.Number, *tx.ReferenceNumber)
		require.NotNil(t, tx.Notes)
		assert.Equal(t, "Received from PO: "+order.Number, *tx.Notes)
	}

	stored, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.StatusReceived, stored.Status)
	assert.Len(t, stored.Items, 2)
}

func TestReceive_AtMostOnce(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)
	order := f.ordered(t)

	_, err := f.svc.Receive(f.ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Receive(f.ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, int64(8), f.dockQuantity(t))
}

func TestReceive_RequiresOrdered(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)
	order := f.newOrder(t)
	f.advance(t, order.ID, po.StatusPending, po.StatusApproved)

	_, err := f.svc.Receive(f.ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, int64(0), f.dockQuantity(t))
}

func TestReceive_ConfiguredLocation(t *testing.T) {
	f := newFixture(t, "DOCK")
	f.withDock(t, false)

	other := location.NewLocation("Main", location.TypeWarehouse)
	other.IsDefault = true
	require.NoError(t, f.locations.Create(f.ctx, other))

	order := f.ordered(t)
	_, err := f.svc.Receive(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), f.dockQuantity(t))
}

func TestReceive_NoReceivingLocation(t *testing.T) {
	f := newFixture(t, "")
	order := f.ordered(t)

	_, err := f.svc.Receive(f.ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	stored, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.StatusOrdered, stored.Status)
}

func TestReceive_FailedLineRollsBackAll(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)

	gone := product.NewProduct("Discontinued")
	gone.SKU = "DISCONTI"
	require.NoError(t, f.repos.Products.Create(f.ctx, gone))

	order := po.NewPurchaseOrder(f.supplierID)
	order.AddItem(f.productID, 5, types.MustMoney("2.00"))
	order.AddItem(gone.ID, 3, types.MustMoney("4.00"))
	require.NoError(t, f.svc.Create(f.ctx, order))
	f.advance(t, order.ID, po.StatusPending, po.StatusApproved, po.StatusOrdered)

	// the second line now points at a product the ledger rejects
	require.NoError(t, f.repos.Products.Delete(f.ctx, gone.ID))

	_, err := f.svc.Receive(f.ctx, order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	assert.Equal(t, int64(0), f.dockQuantity(t), "first line must roll back")
	res, err := f.ledger.List(f.ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)

	stored, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.StatusOrdered, stored.Status)
	assert.Nil(t, stored.DeliveryDate)
}

func TestCreate_NumbersAndDefaults(t *testing.T) {
	f := newFixture(t, "")

	first := f.newOrder(t)
	second := f.newOrder(t)

	cfg := numerator.PurchaseOrderConfig()
	assert.Equal(t, cfg.Format(first.OrderDate, 1), first.Number)
	assert.Equal(t, cfg.Format(first.OrderDate, 2), second.Number)
	assert.Equal(t, po.StatusDraft, first.Status)
	assert.True(t, first.TotalAmount.Equal(types.MustMoney("22.00")))

	dup := po.NewPurchaseOrder(f.supplierID)
	dup.Number = first.Number
	dup.AddItem(f.productID, 1, types.MustMoney("1.00"))
	require.NoError(t, f.svc.Create(f.ctx, dup))
	assert.Equal(t, first.Number+"-1", dup.Number)
}

func TestCreate_Rejects(t *testing.T) {
	f := newFixture(t, "")

	unknownSupplier := po.NewPurchaseOrder(id.New())
	unknownSupplier.AddItem(f.productID, 1, types.MustMoney("1.00"))
	err := f.svc.Create(f.ctx, unknownSupplier)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	unknownProduct := po.NewPurchaseOrder(f.supplierID)
	unknownProduct.AddItem(id.New(), 1, types.MustMoney("1.00"))
	err = f.svc.Create(f.ctx, unknownProduct)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	asReceived := po.NewPurchaseOrder(f.supplierID)
	asReceived.Status = po.StatusReceived
	asReceived.AddItem(f.productID, 1, types.MustMoney("1.00"))
	err = f.svc.Create(f.ctx, asReceived)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestUpdate_ReceivedIsFrozen(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)
	order := f.ordered(t)
	_, err := f.svc.Receive(f.ctx, order.ID)
	require.NoError(t, err)

	stored, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	stored.Items[0].Quantity = 50
	err = f.svc.Update(f.ctx, stored)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	err = f.svc.Delete(f.ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestUpdate_ReplacesItems(t *testing.T) {
	f := newFixture(t, "")
	order := f.newOrder(t)

	stored, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	stored.Items = stored.Items[:1]
	stored.Items[0].Quantity = 10
	stored.Items[0].TotalCost = types.LineTotal(10, stored.Items[0].UnitCost)
	require.NoError(t, f.svc.Update(f.ctx, stored))

	again, err := f.svc.GetByID(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, int64(10), again.Items[0].Quantity)
	assert.True(t, again.TotalAmount.Equal(types.MustMoney("20.00")), again.TotalAmount.String())
	assert.Equal(t, order.Number, again.Number)
}

func TestChangeStatus_CancelFromAnyOpenState(t *testing.T) {
	f := newFixture(t, "")
	order := f.ordered(t)

	cancelled, err := f.svc.ChangeStatus(f.ctx, order.ID, po.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, po.StatusCancelled, cancelled.Status)

	_, err = f.svc.ChangeStatus(f.ctx, order.ID, po.StatusDraft)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestChangeStatus_ReceivedOnlyThroughReceive(t *testing.T) {
	f := newFixture(t, "")
	order := f.ordered(t)

	_, err := f.svc.ChangeStatus(f.ctx, order.ID, po.StatusReceived)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestDelete_BlockedByTransactions(t *testing.T) {
	f := newFixture(t, "")
	f.withDock(t, true)
	order := f.newOrder(t)

	_, _, err := f.ledger.Apply(f.ctx, ledger.TransactionInput{
		ProductID:  f.productID,
		LocationID: f.dockID,
		Type:       ledger.TypeIn,
		Quantity:   1,
		UnitCost:   types.MustMoney("1.00"),
		Reference:  &ledger.Reference{Type: ledger.RefPurchaseOrder, ID: &order.ID},
	})
	require.NoError(t, err)

	err = f.svc.Delete(f.ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConstraint))

	plain := f.newOrder(t)
	require.NoError(t, f.svc.Delete(f.ctx, plain.ID))
	_, err = f.svc.GetByID(f.ctx, plain.ID)
	assert.True(t, apperror.IsNotFound(err))
}
