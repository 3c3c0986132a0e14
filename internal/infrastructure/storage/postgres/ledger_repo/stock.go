// Package ledger_repo provides PostgreSQL repositories for stock levels and
// stock movements.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/storage/postgres"
)

const stockLevelsTable = "stock_levels"

var stockLevelColumns = postgres.ExtractDBColumns[ledger.StockLevel]()

// StockLevelRepo implements ledger.StockLevelRepository.
type StockLevelRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockLevelRepo creates a new stock level repository.
func NewStockLevelRepo(txm *postgres.TxManager) *StockLevelRepo {
	return &StockLevelRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func keyNotFound(key ledger.StockKey) error {
	return apperror.NewNotFound("stock level", key.ProductID.String()+"/"+key.LocationID.String())
}

func byKey(key ledger.StockKey) squirrel.Eq {
	return squirrel.Eq{"product_id": key.ProductID, "location_id": key.LocationID}
}

func (r *StockLevelRepo) requireTx(ctx context.Context) error {
	if !r.txm.InTx(ctx) {
		return apperror.NewInternal(fmt.Errorf("%s: row lock requires a transaction", stockLevelsTable))
	}
	return nil
}

// insertIfMissingQuery creates an empty row, leaving an existing one untouched.
func (r *StockLevelRepo) insertIfMissingQuery(level *ledger.StockLevel) squirrel.InsertBuilder {
	return r.builder.
		Insert(stockLevelsTable).
		Columns("product_id", "location_id", "quantity", "unit_cost", "created_at", "updated_at").
		Values(level.ProductID, level.LocationID, level.Quantity, level.UnitCost, level.CreatedAt, level.UpdatedAt).
		Suffix("ON CONFLICT (product_id, location_id) DO NOTHING")
}

func (r *StockLevelRepo) lockQuery(key ledger.StockKey) squirrel.SelectBuilder {
	return r.builder.
		Select(stockLevelColumns...).
		From(stockLevelsTable).
		Where(byKey(key)).
		Suffix("FOR UPDATE")
}

// LockOrCreate implements ledger.StockLevelRepository.
// Concurrent first writers converge on the same row through the
// conflict clause, then serialise on the row lock.
func (r *StockLevelRepo) LockOrCreate(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	if err := r.requireTx(ctx); err != nil {
		return nil, err
	}

	sql, args, err := r.insertIfMissingQuery(ledger.NewStockLevel(key)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return nil, postgres.MapError(err, "stock level", "create")
	}

	return r.GetForUpdate(ctx, key)
}

// GetForUpdate implements ledger.StockLevelRepository.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	if err := r.requireTx(ctx); err != nil {
		return nil, err
	}

	sql, args, err := r.lockQuery(key).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level ledger.StockLevel
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, keyNotFound(key)
		}
		return nil, postgres.MapError(err, "stock level", "lock")
	}
	return &level, nil
}

// Save implements ledger.StockLevelRepository.
func (r *StockLevelRepo) Save(ctx context.Context, level *ledger.StockLevel) error {
	level.UpdatedAt = time.Now().UTC()

	sql, args, err := r.builder.
		Update(stockLevelsTable).
		Set("quantity", level.Quantity).
		Set("unit_cost", level.UnitCost).
		Set("updated_at", level.UpdatedAt).
		Where(byKey(level.Key())).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "stock level", "update")
	}
	if result.RowsAffected() == 0 {
		return keyNotFound(level.Key())
	}
	return nil
}

// Get implements ledger.StockLevelRepository.
func (r *StockLevelRepo) Get(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	sql, args, err := r.builder.
		Select(stockLevelColumns...).
		From(stockLevelsTable).
		Where(byKey(key)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level ledger.StockLevel
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, keyNotFound(key)
		}
		return nil, postgres.MapError(err, "stock level", "get")
	}
	return &level, nil
}

func (r *StockLevelRepo) listQuery(filter ledger.StockFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(stockLevelColumns...).
		From(stockLevelsTable).
		OrderBy("product_id", "location_id")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.NonZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}
	return q
}

// List implements ledger.StockLevelRepository.
func (r *StockLevelRepo) List(ctx context.Context, filter ledger.StockFilter) ([]*ledger.StockLevel, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	levels := []*ledger.StockLevel{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &levels, sql, args...); err != nil {
		return nil, postgres.MapError(err, "stock level", "list")
	}
	return levels, nil
}

// ExistsForProduct implements ledger.StockLevelRepository.
func (r *StockLevelRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	return exists(ctx, r.txm, r.builder, stockLevelsTable, squirrel.Eq{"product_id": productID})
}

// ExistsForLocation implements ledger.StockLevelRepository.
func (r *StockLevelRepo) ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error) {
	return exists(ctx, r.txm, r.builder, stockLevelsTable, squirrel.Eq{"location_id": locationID})
}

func exists(ctx context.Context, txm *postgres.TxManager, b squirrel.StatementBuilderType, table string, where squirrel.Sqlizer) (bool, error) {
	sql, args, err := b.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(where).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var ok bool
	if err := txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, postgres.MapError(err, table, "exists")
	}
	return ok, nil
}

var _ ledger.StockLevelRepository = (*StockLevelRepo)(nil)
