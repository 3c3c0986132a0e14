//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockroom/internal/app"
	"stockroom/internal/core/apperror"
	"stockroom/internal/core/config"
	appctx "stockroom/internal/core/context"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/storage/postgres"
)

func startDatabase(t *testing.T) (*app.Storage, context.Context) {
	t.Helper()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "integration"})

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockroom_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := postgres.NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	dbCfg := config.DatabaseConfig{URL: dsn, MaxConns: 8, StatementTimeout: 10 * time.Second}
	pool, err := postgres.NewPool(ctx, dbCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	storage, err := app.NewPostgresStorage(pool, dbCfg)
	require.NoError(t, err)
	return storage, ctx
}

func TestPostgres_EndToEnd(t *testing.T) {
	storage, ctx := startDatabase(t)
	svc := app.NewServices(storage, "")

	sup := supplier.NewSupplier("Acme Industrial")
	require.NoError(t, svc.Suppliers.Create(ctx, sup))
	assert.Equal(t, "ACMEIN", sup.Code)

	dock := location.NewLocation("Dock", location.TypeWarehouse)
	dock.IsDefault = true
	require.NoError(t, svc.Locations.Create(ctx, dock))

	bolt := product.NewProduct("Steel Bolt")
	bolt.SupplierID = &sup.ID
	bolt.CostPrice = types.MustMoney("1.25")
	require.NoError(t, svc.Products.Create(ctx, bolt))

	t.Run("catalog round trip and optimistic lock", func(t *testing.T) {
		got, err := svc.Products.GetByKey(ctx, bolt.SKU)
		require.NoError(t, err)
		assert.True(t, got.CostPrice.Equal(types.MustMoney("1.25")))
		assert.Equal(t, &sup.ID, got.SupplierID)

		stale := *got
		got.Name = "Steel Bolt M8"
		require.NoError(t, svc.Products.Update(ctx, got))
		assert.Equal(t, 2, got.Version)

		stale.Name = "Lost update"
		err = svc.Products.Update(ctx, &stale)
		assert.True(t, apperror.IsConcurrentModification(err))

		res, err := svc.Products.List(ctx, domain.ListFilter{Search: "m8"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.TotalCount)
	})

	t.Run("ledger apply edit delete", func(t *testing.T) {
		in, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
			ProductID: bolt.ID, LocationID: dock.ID, Type: ledger.TypeIn, Quantity: 10, UnitCost: types.MustMoney("2.00"),
		})
		require.NoError(t, err)

		out, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
			ProductID: bolt.ID, LocationID: dock.ID, Type: ledger.TypeOut, Quantity: 4,
		})
		require.NoError(t, err)

		key := ledger.StockKey{ProductID: bolt.ID, LocationID: dock.ID}
		level, err := svc.Ledger.StockLevel(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(6), level.Quantity)
		assert.True(t, level.UnitCost.Equal(types.MustMoney("2.00")))

		_, err = svc.Ledger.Edit(ctx, out.ID, ledger.TransactionInput{
			ProductID: bolt.ID, LocationID: dock.ID, Type: ledger.TypeOut, Quantity: 1,
		})
		require.NoError(t, err)
		level, err = svc.Ledger.StockLevel(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(9), level.Quantity)

		adj, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
			ProductID: bolt.ID, LocationID: dock.ID, Type: ledger.TypeAdjustment, Quantity: 20,
		})
		require.NoError(t, err)
		require.NotNil(t, adj.PreviousQuantity)
		assert.Equal(t, int64(9), *adj.PreviousQuantity)

		require.NoError(t, svc.Ledger.Delete(ctx, adj.ID))
		require.NoError(t, svc.Ledger.Delete(ctx, in.ID))
		level, err = svc.Ledger.StockLevel(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), level.Quantity)

		history, err := svc.Ledger.History(ctx, out.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "integration", history[0].UserID)

		summary, err := svc.Ledger.Summary(ctx, ledger.TransactionFilter{ProductID: &bolt.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.Count)
		assert.Equal(t, int64(1), summary.StockOut)
	})

	t.Run("concurrent writers do not lose updates", func(t *testing.T) {
		nut := product.NewProduct("Hex Nut")
		require.NoError(t, svc.Products.Create(ctx, nut))

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
					ProductID: nut.ID, LocationID: dock.ID, Type: ledger.TypeIn, Quantity: 5,
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		level, err := svc.Ledger.StockLevel(ctx, ledger.StockKey{ProductID: nut.ID, LocationID: dock.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(writers*5), level.Quantity)
	})

	t.Run("purchase order receipt", func(t *testing.T) {
		order := po.NewPurchaseOrder(sup.ID)
		order.AddItem(bolt.ID, 7, types.MustMoney("1.10"))
		require.NoError(t, svc.PurchaseOrders.Create(ctx, order))
		assert.NotEmpty(t, order.Number)

		for _, st := range []po.Status{po.StatusPending, po.StatusApproved, po.StatusOrdered} {
			_, err := svc.PurchaseOrders.ChangeStatus(ctx, order.ID, st)
			require.NoError(t, err)
		}

		received, err := svc.PurchaseOrders.Receive(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, po.StatusReceived, received.Status)
		assert.NotNil(t, received.DeliveryDate)

		_, err = svc.PurchaseOrders.Receive(ctx, order.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

		refType := ledger.RefPurchaseOrder
		res, err := svc.Ledger.List(ctx, ledger.TransactionFilter{ReferenceType: &refType, ReferenceID: &order.ID})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, int64(7), res.Items[0].Quantity)

		err = svc.PurchaseOrders.Delete(ctx, order.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	})

	t.Run("delete constraints", func(t *testing.T) {
		assert.True(t, apperror.HasCode(svc.Products.Delete(ctx, bolt.ID), apperror.CodeConstraint))
		assert.True(t, apperror.HasCode(svc.Locations.Delete(ctx, dock.ID), apperror.CodeConstraint))
		assert.True(t, apperror.HasCode(svc.Suppliers.Delete(ctx, sup.ID), apperror.CodeConstraint))
	})
}

func TestPostgres_RollbackOnFailure(t *testing.T) {
	storage, ctx := startDatabase(t)
	svc := app.NewServices(storage, "")

	dock := location.NewLocation("Dock", location.TypeWarehouse)
	require.NoError(t, svc.Locations.Create(ctx, dock))
	p := product.NewProduct("Washer")
	require.NoError(t, svc.Products.Create(ctx, p))

	err := storage.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, _, err := svc.Ledger.Apply(ctx, ledger.TransactionInput{
			ProductID: p.ID, LocationID: dock.ID, Type: ledger.TypeIn, Quantity: 3,
		}); err != nil {
			return err
		}
		return apperror.NewInvalidState("abort")
	})
	require.Error(t, err)

	_, err = svc.Ledger.StockLevel(ctx, ledger.StockKey{ProductID: p.ID, LocationID: dock.ID})
	assert.True(t, apperror.IsNotFound(err))

	res, err := svc.Ledger.List(ctx, ledger.TransactionFilter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
}

func TestPostgres_SingleDefaultLocation(t *testing.T) {
	storage, ctx := startDatabase(t)
	svc := app.NewServices(storage, "")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			loc := location.NewLocation(fmt.Sprintf("Bay %d", n), location.TypeWarehouse)
			loc.IsDefault = true
			errs <- svc.Locations.Create(ctx, loc)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// flip the default back and forth between two rows concurrently
	res, err := svc.Locations.List(ctx, domain.ListFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, res.Items, writers)
	pair := res.Items[:2]
	for round := 0; round < 4; round++ {
		var flips sync.WaitGroup
		for _, l := range pair {
			flips.Add(1)
			go func(locID id.ID) {
				defer flips.Done()
				for {
					cur, err := svc.Locations.GetByID(ctx, locID)
					if !assert.NoError(t, err) {
						return
					}
					cur.IsDefault = true
					err = svc.Locations.Update(ctx, cur)
					if apperror.IsConcurrentModification(err) {
						continue
					}
					assert.NoError(t, err)
					return
				}
			}(l.ID)
		}
		flips.Wait()
	}

	res, err = svc.Locations.List(ctx, domain.ListFilter{Limit: 100})
	require.NoError(t, err)
	defaults := 0
	for _, l := range res.Items {
		if l.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	_, err = svc.Locations.GetDefault(ctx)
	assert.NoError(t, err)
}
