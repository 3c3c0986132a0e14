package document_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	po "stockroom/internal/domain/documents/purchase_order"
)

func TestItemColumnsMatchRow(t *testing.T) {
	item := po.Item{ID: id.New(), LineNo: 1, ProductID: id.New(), Quantity: 3, UnitCost: types.MustMoney("2.50")}

	assert.Equal(t, []string{
		"id", "purchase_order_id", "line_no", "product_id",
		"quantity", "unit_cost", "total_cost", "notes",
	}, itemColumns)
	assert.Len(t, itemRow(id.New(), item), len(itemColumns))
}

func TestHeaderColumnsSkipItems(t *testing.T) {
	assert.Contains(t, headerColumns, "po_number")
	assert.Contains(t, headerColumns, "version")
	assert.NotContains(t, headerColumns, "-")
}

func TestInsertItemsQuery(t *testing.T) {
	repo := NewPurchaseOrderRepo(nil)
	poID := id.New()
	items := []po.Item{
		{ID: id.New(), LineNo: 1, ProductID: id.New(), Quantity: 5},
		{ID: id.New(), LineNo: 2, ProductID: id.New(), Quantity: 3},
	}

	sql, args, err := repo.insertItemsQuery(poID, items).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO purchase_order_items (id,purchase_order_id,line_no,product_id,quantity,unit_cost,total_cost,notes) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16)",
		sql)
	assert.Len(t, args, 16)
	assert.Equal(t, poID, args[1])
	assert.Equal(t, poID, args[9])
}

func TestListQuery(t *testing.T) {
	repo := NewPurchaseOrderRepo(nil)
	supplierID := id.New()

	sql, args, err := repo.listQuery(po.ListFilter{
		Search:     "PO2024",
		SupplierID: &supplierID,
		Statuses:   []po.Status{po.StatusOrdered, po.StatusReceived},
	}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE po_number ILIKE $1 AND supplier_id = $2 AND status IN ($3,$4)")
	assert.Equal(t, []any{"%PO2024%", supplierID, "ordered", "received"}, args)
}

func TestProductReferenceQuery(t *testing.T) {
	repo := NewPurchaseOrderRepo(nil)
	productID := id.New()

	sql, args, err := repo.existsQuery(purchaseItemsTable, squirrel.Eq{"product_id": productID}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT EXISTS ( SELECT 1 FROM purchase_order_items WHERE product_id = $1 )", sql)
	assert.Equal(t, []any{productID}, args)
}
