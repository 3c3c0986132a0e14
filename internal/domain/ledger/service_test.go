package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/apperror"
	appctx "stockroom/internal/core/context"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain/audit"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/storage/memory"
)

type fixture struct {
	repos *memory.Repositories
	svc   *ledger.Service
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	return &fixture{
		repos: repos,
		svc:   newService(repos, repos.StockLevels),
		ctx:   appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "clerk-1"}),
	}
}

func newService(repos *memory.Repositories, stock ledger.StockLevelRepository) *ledger.Service {
	return ledger.NewService(ledger.Config{
		Stock:        stock,
		Transactions: repos.Transactions,
		Products:     repos.Products,
		Locations:    repos.Locations,
		TxManager:    repos.Store,
		Audit:        repos.Audit,
	})
}

func (f *fixture) product(t *testing.T, sku string) id.ID {
	t.Helper()
	p := product.NewProduct("Product " + sku)
	p.SKU = sku
	require.NoError(t, f.repos.Products.Create(f.ctx, p))
	return p.ID
}

func (f *fixture) location(t *testing.T, code string) id.ID {
	t.Helper()
	l := location.NewLocation("Location "+code, location.TypeWarehouse)
	l.Code = code
	require.NoError(t, f.repos.Locations.Create(f.ctx, l))
	return l.ID
}

func (f *fixture) quantity(t *testing.T, productID, locationID id.ID) int64 {
	t.Helper()
	level, err := f.svc.StockLevel(f.ctx, ledger.StockKey{ProductID: productID, LocationID: locationID})
	require.NoError(t, err)
	return level.Quantity
}

func input(productID, locationID id.ID, typ ledger.TransactionType, qty int64) ledger.TransactionInput {
	return ledger.TransactionInput{
		ProductID:  productID,
		LocationID: locationID,
		Type:       typ,
		Quantity:   qty,
		UnitCost:   types.MustMoney("5.00"),
	}
}

func TestApply_Scenario(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	in, level, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.Quantity)
	assert.True(t, in.TotalCost.Equal(types.MustMoney("50.00")))
	assert.Equal(t, "clerk-1", in.UserID)

	out, level, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeOut, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(6), level.Quantity)

	require.NoError(t, f.svc.Delete(f.ctx, out.ID))
	assert.Equal(t, int64(10), f.quantity(t, p, l))

	_, err = f.svc.Edit(f.ctx, in.ID, input(p, l, ledger.TypeIn, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.quantity(t, p, l))
}

func TestApply_LazilyCreatesStockLevel(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	_, err := f.svc.StockLevel(f.ctx, ledger.StockKey{ProductID: p, LocationID: l})
	require.True(t, apperror.IsNotFound(err))

	_, level, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeTransfer, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Quantity)
	assert.Equal(t, int64(0), f.quantity(t, p, l))
}

func TestApply_Validation(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	tests := []struct {
		name string
		in   ledger.TransactionInput
		code string
	}{
		{"zero quantity", input(p, l, ledger.TypeIn, 0), apperror.CodeValidation},
		{"unknown type", input(p, l, "teleport", 1), apperror.CodeValidation},
		{"missing product", input(id.New(), l, ledger.TypeIn, 1), apperror.CodeNotFound},
		{"missing location", input(p, id.New(), ledger.TypeIn, 1), apperror.CodeNotFound},
		{"negative cost", func() ledger.TransactionInput {
			in := input(p, l, ledger.TypeIn, 1)
			in.UnitCost = types.MustMoney("-1")
			return in
		}(), apperror.CodeValidation},
		{"reference id without type", func() ledger.TransactionInput {
			in := input(p, l, ledger.TypeIn, 1)
			refID := id.New()
			in.Reference = &ledger.Reference{ID: &refID}
			return in
		}(), apperror.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Apply(f.ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	res, err := f.svc.List(f.ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount, "rejected input must not be recorded")
}

// Random apply/edit/delete sequences keep every level equal to the signed
// sum of the movements still recorded against it.
func TestLedger_LevelsMatchLog(t *testing.T) {
	f := newFixture(t)
	products := []id.ID{f.product(t, "P1"), f.product(t, "P2")}
	locations := []id.ID{f.location(t, "L1"), f.location(t, "L2")}
	kinds := []ledger.TransactionType{
		ledger.TypeIn, ledger.TypeOut, ledger.TypeReturn,
		ledger.TypeDamage, ledger.TypeExpiry, ledger.TypeTransfer,
	}

	rng := rand.New(rand.NewSource(42))
	randomInput := func() ledger.TransactionInput {
		return input(
			products[rng.Intn(len(products))],
			locations[rng.Intn(len(locations))],
			kinds[rng.Intn(len(kinds))],
			int64(rng.Intn(20)+1),
		)
	}

	var live []id.ID
	for step := 0; step < 200; step++ {
		switch op := rng.Intn(10); {
		case op < 6 || len(live) == 0:
			tx, _, err := f.svc.Apply(f.ctx, randomInput())
			require.NoError(t, err)
			live = append(live, tx.ID)
		case op < 8:
			_, err := f.svc.Edit(f.ctx, live[rng.Intn(len(live))], randomInput())
			require.NoError(t, err)
		default:
			i := rng.Intn(len(live))
			require.NoError(t, f.svc.Delete(f.ctx, live[i]))
			live = append(live[:i], live[i+1:]...)
		}
	}

	res, err := f.svc.List(f.ctx, ledger.TransactionFilter{Limit: 500})
	require.NoError(t, err)
	require.Equal(t, int64(len(live)), res.TotalCount)

	want := map[ledger.StockKey]int64{}
	for _, tx := range res.Items {
		want[tx.Key()] += ledger.SignedEffect(tx.Type, tx.Quantity)
	}

	levels, err := f.svc.StockLevels(f.ctx, ledger.StockFilter{})
	require.NoError(t, err)
	for _, level := range levels {
		assert.Equal(t, want[level.Key()], level.Quantity, "level %v", level.Key())
	}
}

func TestApplyThenDelete_RestoresLevel(t *testing.T) {
	for _, typ := range []ledger.TransactionType{
		ledger.TypeIn, ledger.TypeOut, ledger.TypeTransfer,
		ledger.TypeReturn, ledger.TypeDamage, ledger.TypeExpiry,
	} {
		t.Run(string(typ), func(t *testing.T) {
			f := newFixture(t)
			p, l := f.product(t, "P"), f.location(t, "L")

			_, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 50))
			require.NoError(t, err)

			tx, _, err := f.svc.Apply(f.ctx, input(p, l, typ, 7))
			require.NoError(t, err)
			require.NoError(t, f.svc.Delete(f.ctx, tx.ID))

			assert.Equal(t, int64(50), f.quantity(t, p, l))
		})
	}
}

func TestEdit_MovesEffectAcrossKeys(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P")
	l1, l2 := f.location(t, "L1"), f.location(t, "L2")

	tx, _, err := f.svc.Apply(f.ctx, input(p, l1, ledger.TypeIn, 10))
	require.NoError(t, err)

	edited, err := f.svc.Edit(f.ctx, tx.ID, input(p, l2, ledger.TypeIn, 7))
	require.NoError(t, err)
	assert.Equal(t, tx.ID, edited.ID)
	assert.Equal(t, l2, edited.LocationID)

	assert.Equal(t, int64(0), f.quantity(t, p, l1))
	assert.Equal(t, int64(7), f.quantity(t, p, l2))
}

func TestEdit_ChangesType(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	_, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.NoError(t, err)
	tx, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 5))
	require.NoError(t, err)

	_, err = f.svc.Edit(f.ctx, tx.ID, input(p, l, ledger.TypeOut, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.quantity(t, p, l))
}

func TestAdjustment_ReversalKeepsLaterMovements(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	_, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.NoError(t, err)

	adj, level, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeAdjustment, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), level.Quantity)
	require.NotNil(t, adj.PreviousQuantity)
	assert.Equal(t, int64(10), *adj.PreviousQuantity)

	_, _, err = f.svc.Apply(f.ctx, input(p, l, ledger.TypeOut, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.quantity(t, p, l))

	require.NoError(t, f.svc.Delete(f.ctx, adj.ID))
	assert.Equal(t, int64(9), f.quantity(t, p, l))
}

func TestAdjustment_EditRebaselines(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	_, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.NoError(t, err)
	adj, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeAdjustment, 4))
	require.NoError(t, err)

	edited, err := f.svc.Edit(f.ctx, adj.ID, input(p, l, ledger.TypeAdjustment, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.quantity(t, p, l))
	require.NotNil(t, edited.PreviousQuantity)
	assert.Equal(t, int64(10), *edited.PreviousQuantity)
}

func TestReverse_MissingLevelIsNoop(t *testing.T) {
	f := newFixture(t)
	orphan := &ledger.Transaction{
		ID:         id.New(),
		ProductID:  id.New(),
		LocationID: id.New(),
		Type:       ledger.TypeIn,
		Quantity:   3,
	}

	level, err := f.svc.Reverse(f.ctx, orphan)
	require.NoError(t, err)
	assert.Nil(t, level)

	levels, err := f.svc.StockLevels(f.ctx, ledger.StockFilter{})
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestEditAndDelete_UnknownTransaction(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	_, err := f.svc.Edit(f.ctx, id.New(), input(p, l, ledger.TypeIn, 1))
	assert.True(t, apperror.IsNotFound(err))

	err = f.svc.Delete(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

// failingStock fails the Nth Save so a multi-write operation breaks midway.
type failingStock struct {
	ledger.StockLevelRepository
	failOn int
	saves  int
}

var errDisk = errors.New("disk full")

func (s *failingStock) Save(ctx context.Context, level *ledger.StockLevel) error {
	s.saves++
	if s.saves == s.failOn {
		return errDisk
	}
	return s.StockLevelRepository.Save(ctx, level)
}

func TestApply_FailedStockWriteLeavesNoTransaction(t *testing.T) {
	repos := memory.NewRepositories()
	f := &fixture{repos: repos, ctx: context.Background()}
	f.svc = newService(repos, repos.StockLevels)
	p, l := f.product(t, "P"), f.location(t, "L")

	broken := newService(repos, &failingStock{StockLevelRepository: repos.StockLevels, failOn: 1})
	_, _, err := broken.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.ErrorIs(t, err, errDisk)

	res, err := f.svc.List(f.ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)

	_, err = f.svc.StockLevel(f.ctx, ledger.StockKey{ProductID: p, LocationID: l})
	assert.True(t, apperror.IsNotFound(err), "lazily created level must roll back too")
}

func TestEdit_FailedReapplyRollsBackReversal(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P")
	l1, l2 := f.location(t, "L1"), f.location(t, "L2")

	tx, _, err := f.svc.Apply(f.ctx, input(p, l1, ledger.TypeIn, 10))
	require.NoError(t, err)

	// save 1 is the reversal on l1, save 2 the new effect on l2
	broken := newService(f.repos, &failingStock{StockLevelRepository: f.repos.StockLevels, failOn: 2})
	_, err = broken.Edit(f.ctx, tx.ID, input(p, l2, ledger.TypeIn, 7))
	require.ErrorIs(t, err, errDisk)

	assert.Equal(t, int64(10), f.quantity(t, p, l1))
	_, err = f.svc.StockLevel(f.ctx, ledger.StockKey{ProductID: p, LocationID: l2})
	assert.True(t, apperror.IsNotFound(err))

	stored, err := f.svc.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, l1, stored.LocationID)
	assert.Equal(t, int64(10), stored.Quantity)
}

func TestEditAndDelete_WriteAuditTrail(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	tx, _, err := f.svc.Apply(f.ctx, input(p, l, ledger.TypeIn, 10))
	require.NoError(t, err)
	_, err = f.svc.Edit(f.ctx, tx.ID, input(p, l, ledger.TypeIn, 12))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(f.ctx, tx.ID))

	entries, err := f.svc.History(f.ctx, tx.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionDelete, entries[0].Action)
	assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	assert.Equal(t, "clerk-1", entries[1].UserID)
	assert.Contains(t, string(entries[1].Changes), `"before"`)
}

func TestSummaryAndHistory(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")

	for _, in := range []ledger.TransactionInput{
		input(p, l, ledger.TypeIn, 10),
		input(p, l, ledger.TypeOut, 3),
		input(p, l, ledger.TypeDamage, 1),
		input(p, l, ledger.TypeReturn, 2),
	} {
		_, _, err := f.svc.Apply(f.ctx, in)
		require.NoError(t, err)
	}

	summary, err := f.svc.Summary(f.ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Count)
	assert.Equal(t, int64(10), summary.StockIn)
	assert.Equal(t, int64(4), summary.StockOut)
	assert.True(t, summary.TotalValue.Equal(types.MustMoney("80.00")))
	assert.Len(t, summary.Recent, 4)

	history, err := f.svc.ProductHistory(f.ctx, p, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stock, err := f.svc.ProductStock(f.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stock.Quantity)
}

func TestUsageProbes(t *testing.T) {
	f := newFixture(t)
	p, l := f.product(t, "P"), f.location(t, "L")
	other := f.product(t, "Q")
	poID := id.New()

	in := input(p, l, ledger.TypeIn, 1)
	in.Reference = &ledger.Reference{Type: ledger.RefPurchaseOrder, ID: &poID}
	_, _, err := f.svc.Apply(f.ctx, in)
	require.NoError(t, err)

	ok, err := f.svc.ProductHasStock(f.ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.ProductHasTransactions(f.ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.LocationHasTransactions(f.ctx, l)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Referenced(ledger.RefPurchaseOrder)(f.ctx, poID)
	require.NoError(t, err)
	assert.True(t, ok)
}
