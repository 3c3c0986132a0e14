// Package catalog_repo provides PostgreSQL repositories for catalogs.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/infrastructure/storage/postgres"
)

// Table describes how a catalog maps onto its table.
type Table struct {
	Name       string
	Entity     string
	KeyColumn  string
	Searchable []string
}

// BaseCatalogRepo provides common CRUD operations for catalog tables.
type BaseCatalogRepo[T domain.CatalogEntity] struct {
	txm        *postgres.TxManager
	table      Table
	selectCols []string
	newFn      func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
// Columns are taken from the db tags of T.
func NewBaseCatalogRepo[T domain.CatalogEntity](txm *postgres.TxManager, table Table, selectCols []string, newFn func() T) *BaseCatalogRepo[T] {
	if len(table.Searchable) == 0 {
		table.Searchable = []string{"name", table.KeyColumn}
	}
	return &BaseCatalogRepo[T]{
		txm:        txm,
		table:      table,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a squirrel builder for PostgreSQL.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *BaseCatalogRepo[T]) hasColumn(col string) bool {
	return slices.Contains(r.selectCols, col)
}

func (r *BaseCatalogRepo[T]) fail(err error, op string) error {
	return postgres.MapError(err, r.table.Entity, op)
}

// Create inserts a new entity.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMapCols(entity, r.selectCols)

	sql, args, err := r.Builder().
		Insert(r.table.Name).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.fail(err, "create")
	}
	return nil
}

// Update saves entity when its version still matches the stored one.
// On success the entity carries the new version.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
	entity.Touch()
	data := postgres.StructToMapCols(entity, r.selectCols)
	for _, col := range []string{"id", "version", "created_at"} {
		delete(data, col)
	}

	sql, args, err := r.Builder().
		Update(r.table.Name).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entity.GetID()}).
		Where(squirrel.Eq{"version": entity.GetVersion()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.fail(err, "update")
	}

	if result.RowsAffected() == 0 {
		exists, err := r.Exists(ctx, entity.GetID())
		if err != nil {
			return err
		}
		if !exists {
			return apperror.NewNotFound(r.table.Entity, entity.GetID().String())
		}
		return apperror.NewConcurrentModification(r.table.Entity, entity.GetID().String())
	}

	entity.SetVersion(entity.GetVersion() + 1)
	return nil
}

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.table.Name)
}

// FindOne returns the single row matching where.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, where squirrel.Sqlizer, notFoundKey string) (T, error) {
	entity := r.newFn()

	sql, args, err := r.baseSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.table.Entity, notFoundKey)
		}
		return entity, r.fail(err, "get")
	}
	return entity, nil
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, squirrel.Eq{"id": entityID}, entityID.String())
}

// GetByKey retrieves entity by its unique key column.
func (r *BaseCatalogRepo[T]) GetByKey(ctx context.Context, key string) (T, error) {
	return r.FindOne(ctx, squirrel.Eq{r.table.KeyColumn: key}, key)
}

// GetForUpdate retrieves entity with a row lock. Must run within a transaction.
func (r *BaseCatalogRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	entity := r.newFn()
	if !r.txm.InTx(ctx) {
		return entity, apperror.NewInternal(fmt.Errorf("%s: row lock requires a transaction", r.table.Name))
	}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.table.Entity, entityID.String())
		}
		return entity, r.fail(err, "lock")
	}
	return entity, nil
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	filter.Normalize()
	return r.ListWhere(ctx, filter, nil)
}

// ListWhere is List with an extra condition from the concrete repository.
func (r *BaseCatalogRepo[T]) ListWhere(ctx context.Context, filter domain.ListFilter, extra squirrel.Sqlizer) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.applyFilter(r.baseSelect(), filter)
	if extra != nil {
		q = q.Where(extra)
	}

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, r.fail(err, "count")
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, r.fail(err, "list")
	}
	return result, nil
}

func (r *BaseCatalogRepo[T]) applyFilter(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		or := make(squirrel.Or, 0, len(r.table.Searchable))
		for _, col := range r.table.Searchable {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	if filter.ParentID != nil && r.hasColumn("parent_id") {
		q = q.Where(squirrel.Eq{"parent_id": *filter.ParentID})
	}

	if filter.IsActive != nil {
		q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	return q
}

// parseOrderBy validates "col" or "-col" against the table columns.
func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return "name ASC", nil
	}

	direction := "ASC"
	col := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		col = orderBy[1:]
	}

	if !r.hasColumn(col) {
		return "", apperror.NewValidation("invalid sort column").
			WithDetail("field", "orderBy").
			WithDetail("value", col)
	}
	return col + " " + direction, nil
}

// Exists checks if entity with given ID exists.
func (r *BaseCatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return r.ExistsWhere(ctx, squirrel.Eq{"id": entityID})
}

// ExistsByKey checks if another entity already uses key.
func (r *BaseCatalogRepo[T]) ExistsByKey(ctx context.Context, key string, excludeID *id.ID) (bool, error) {
	where := squirrel.And{squirrel.Eq{r.table.KeyColumn: key}}
	if excludeID != nil {
		where = append(where, squirrel.NotEq{"id": *excludeID})
	}
	return r.ExistsWhere(ctx, where)
}

// ExistsWhere reports whether any row matches where.
func (r *BaseCatalogRepo[T]) ExistsWhere(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(r.table.Name).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var one int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, r.fail(err, "exists")
	}
	return true, nil
}

// Delete physically removes the entity.
// A foreign key violation surfaces as a constraint error.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.table.Name).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.fail(err, "delete")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.table.Entity, entityID.String())
	}
	return nil
}
