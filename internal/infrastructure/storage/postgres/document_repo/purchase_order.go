// Package document_repo provides PostgreSQL repositories for documents.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable = "purchase_orders"
	purchaseItemsTable  = "purchase_order_items"
)

var (
	headerColumns = postgres.ExtractDBColumns[po.PurchaseOrder]()
	itemColumns   = postgres.ExtractDBColumns[po.Item]()
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txm *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PurchaseOrderRepo) fail(err error, op string) error {
	return postgres.MapError(err, "purchase order", op)
}

// Create inserts the header. Lines are written by SaveItems.
func (r *PurchaseOrderRepo) Create(ctx context.Context, order *po.PurchaseOrder) error {
	sql, args, err := r.builder.
		Insert(purchaseOrdersTable).
		SetMap(postgres.StructToMap(order)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.fail(err, "create")
	}
	return nil
}

// Update saves the header with optimistic locking.
func (r *PurchaseOrderRepo) Update(ctx context.Context, order *po.PurchaseOrder) error {
	order.Touch()
	data := postgres.StructToMap(order)
	for _, col := range []string{"id", "version", "created_at"} {
		delete(data, col)
	}

	sql, args, err := r.builder.
		Update(purchaseOrdersTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": order.ID, "version": order.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.fail(err, "update")
	}
	if result.RowsAffected() == 0 {
		found, err := r.exists(ctx, squirrel.Eq{"id": order.ID})
		if err != nil {
			return err
		}
		if !found {
			return apperror.NewNotFound("purchase order", order.ID.String())
		}
		return apperror.NewConcurrentModification("purchase order", order.ID.String())
	}

	order.Version++
	return nil
}

// Delete removes the header; lines go with it by cascade.
func (r *PurchaseOrderRepo) Delete(ctx context.Context, poID id.ID) error {
	sql, args, err := r.builder.
		Delete(purchaseOrdersTable).
		Where(squirrel.Eq{"id": poID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.fail(err, "delete")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase order", poID.String())
	}
	return nil
}

func (r *PurchaseOrderRepo) get(ctx context.Context, poID id.ID, suffix string) (*po.PurchaseOrder, error) {
	q := r.builder.
		Select(headerColumns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"id": poID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	order := &po.PurchaseOrder{Items: []po.Item{}}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", poID.String())
		}
		return nil, r.fail(err, "get")
	}
	return order, nil
}

// GetByID returns the header without lines.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*po.PurchaseOrder, error) {
	return r.get(ctx, poID, "")
}

// GetForUpdate locks the header row. Must run within a transaction.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, poID id.ID) (*po.PurchaseOrder, error) {
	if !r.txm.InTx(ctx) {
		return nil, apperror.NewInternal(fmt.Errorf("%s: row lock requires a transaction", purchaseOrdersTable))
	}
	return r.get(ctx, poID, "FOR UPDATE")
}

// GetItems returns lines in line order.
func (r *PurchaseOrderRepo) GetItems(ctx context.Context, poID id.ID) ([]po.Item, error) {
	sql, args, err := r.builder.
		Select(itemColumns...).
		From(purchaseItemsTable).
		Where(squirrel.Eq{"purchase_order_id": poID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := []po.Item{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, r.fail(err, "get items")
	}
	return items, nil
}

func itemRow(poID id.ID, item po.Item) []any {
	return []any{
		item.ID, poID, item.LineNo, item.ProductID,
		item.Quantity, item.UnitCost, item.TotalCost, item.Notes,
	}
}

// SaveItems replaces all lines of the order (delete existing + insert new).
// Inside a transaction the lines are loaded with COPY.
func (r *PurchaseOrderRepo) SaveItems(ctx context.Context, poID id.ID, items []po.Item) error {
	found, err := r.exists(ctx, squirrel.Eq{"id": poID})
	if err != nil {
		return err
	}
	if !found {
		return apperror.NewNotFound("purchase order", poID.String())
	}

	querier := r.txm.GetQuerier(ctx)
	deleteSQL := "DELETE FROM " + purchaseItemsTable + " WHERE purchase_order_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, poID); err != nil {
		return r.fail(err, "delete items")
	}

	if len(items) == 0 {
		return nil
	}

	if r.txm.InTx(ctx) {
		rows := make([][]any, 0, len(items))
		for _, item := range items {
			rows = append(rows, itemRow(poID, item))
		}
		if _, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, purchaseItemsTable, itemColumns, rows); err != nil {
			return r.fail(err, "copy items")
		}
		return nil
	}

	sql, args, err := r.insertItemsQuery(poID, items).ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return r.fail(err, "insert items")
	}
	return nil
}

func (r *PurchaseOrderRepo) insertItemsQuery(poID id.ID, items []po.Item) squirrel.InsertBuilder {
	q := r.builder.Insert(purchaseItemsTable).Columns(itemColumns...)
	for _, item := range items {
		q = q.Values(itemRow(poID, item)...)
	}
	return q
}

func (r *PurchaseOrderRepo) listQuery(filter po.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(headerColumns...).From(purchaseOrdersTable)

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"po_number": "%" + filter.Search + "%"})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"status": statuses})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"order_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"order_date": *filter.DateTo})
	}
	return q
}

// List returns headers, newest order date first.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter po.ListFilter) (domain.ListResult[*po.PurchaseOrder], error) {
	filter.Normalize()
	result := domain.ListResult[*po.PurchaseOrder]{
		Items:  []*po.PurchaseOrder{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, r.fail(err, "count")
	}

	sql, args, err := q.
		OrderBy("order_date DESC", "po_number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, r.fail(err, "list")
	}
	return result, nil
}

func (r *PurchaseOrderRepo) existsQuery(table string, where squirrel.Sqlizer) squirrel.SelectBuilder {
	return r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(where).
		Suffix(")")
}

func (r *PurchaseOrderRepo) exists(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	return r.existsIn(ctx, purchaseOrdersTable, where)
}

func (r *PurchaseOrderRepo) existsIn(ctx context.Context, table string, where squirrel.Sqlizer) (bool, error) {
	sql, args, err := r.existsQuery(table, where).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var ok bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, r.fail(err, "exists")
	}
	return ok, nil
}

// ExistsByNumber checks if another order already uses number.
func (r *PurchaseOrderRepo) ExistsByNumber(ctx context.Context, number string, excludeID *id.ID) (bool, error) {
	where := squirrel.And{squirrel.Eq{"po_number": number}}
	if excludeID != nil {
		where = append(where, squirrel.NotEq{"id": *excludeID})
	}
	return r.exists(ctx, where)
}

// ExistsForSupplier reports whether any order was placed with supplierID.
func (r *PurchaseOrderRepo) ExistsForSupplier(ctx context.Context, supplierID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"supplier_id": supplierID})
}

// ExistsForProduct reports whether any order line references productID.
func (r *PurchaseOrderRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	return r.existsIn(ctx, purchaseItemsTable, squirrel.Eq{"product_id": productID})
}

var _ po.Repository = (*PurchaseOrderRepo)(nil)
