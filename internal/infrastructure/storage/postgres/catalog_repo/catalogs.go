package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	"stockroom/internal/infrastructure/storage/postgres"
)

// CategoryRepo stores categories.
type CategoryRepo struct {
	*BaseCatalogRepo[*category.Category]
}

// NewCategoryRepo creates a new category repository.
func NewCategoryRepo(txm *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{NewBaseCatalogRepo(txm,
		Table{Name: "categories", Entity: "category", KeyColumn: "slug"},
		postgres.ExtractDBColumns[category.Category](),
		func() *category.Category { return &category.Category{} },
	)}
}

// SupplierRepo stores suppliers.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{NewBaseCatalogRepo(txm,
		Table{Name: "suppliers", Entity: "supplier", KeyColumn: "code", Searchable: []string{"name", "code", "contact_person", "email"}},
		postgres.ExtractDBColumns[supplier.Supplier](),
		func() *supplier.Supplier { return &supplier.Supplier{} },
	)}
}

// ProductRepo stores products.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{NewBaseCatalogRepo(txm,
		Table{Name: "products", Entity: "product", KeyColumn: "sku", Searchable: []string{"name", "sku", "barcode", "brand"}},
		postgres.ExtractDBColumns[product.Product](),
		func() *product.Product { return &product.Product{} },
	)}
}

// GetByBarcode retrieves the product carrying barcode.
func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	return r.FindOne(ctx, squirrel.Eq{"barcode": barcode}, barcode)
}

// ExistsByBarcode checks if another product already uses barcode.
func (r *ProductRepo) ExistsByBarcode(ctx context.Context, barcode string, excludeID *id.ID) (bool, error) {
	where := squirrel.And{squirrel.Eq{"barcode": barcode}}
	if excludeID != nil {
		where = append(where, squirrel.NotEq{"id": *excludeID})
	}
	return r.ExistsWhere(ctx, where)
}

// ExistsByCategory reports whether any product is filed under categoryID.
func (r *ProductRepo) ExistsByCategory(ctx context.Context, categoryID id.ID) (bool, error) {
	return r.ExistsWhere(ctx, squirrel.Eq{"category_id": categoryID})
}

// ExistsBySupplier reports whether any product is sourced from supplierID.
func (r *ProductRepo) ExistsBySupplier(ctx context.Context, supplierID id.ID) (bool, error) {
	return r.ExistsWhere(ctx, squirrel.Eq{"supplier_id": supplierID})
}

// LocationRepo stores locations.
type LocationRepo struct {
	*BaseCatalogRepo[*location.Location]
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txm *postgres.TxManager) *LocationRepo {
	return &LocationRepo{NewBaseCatalogRepo(txm,
		Table{Name: "locations", Entity: "location", KeyColumn: "code", Searchable: []string{"name", "code", "city"}},
		postgres.ExtractDBColumns[location.Location](),
		func() *location.Location { return &location.Location{} },
	)}
}

// defaultLockKey is the advisory lock taken before the default flag moves.
const defaultLockKey int64 = 0x4c4f435f444546

// LockDefault serialises default changes until the transaction ends.
func (r *LocationRepo) LockDefault(ctx context.Context) error {
	if !r.txm.InTx(ctx) {
		return apperror.NewInternal(fmt.Errorf("%s: default lock requires a transaction", r.table.Name))
	}
	if _, err := r.querier(ctx).Exec(ctx, "SELECT pg_advisory_xact_lock($1)", defaultLockKey); err != nil {
		return r.fail(err, "lock default")
	}
	return nil
}

// ClearDefault clears the default flag on every location except keepID.
func (r *LocationRepo) ClearDefault(ctx context.Context, keepID id.ID) error {
	sql, args, err := r.clearDefaultQuery(keepID).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.fail(err, "clear default")
	}
	return nil
}

func (r *LocationRepo) clearDefaultQuery(keepID id.ID) squirrel.UpdateBuilder {
	return r.Builder().
		Update(r.table.Name).
		Set("is_default", false).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"is_default": true}).
		Where(squirrel.NotEq{"id": keepID})
}

// GetDefault returns the active default location.
func (r *LocationRepo) GetDefault(ctx context.Context) (*location.Location, error) {
	active := true
	res, err := r.ListWhere(ctx,
		domain.ListFilter{IsActive: &active, OrderBy: "created_at", Limit: 1},
		squirrel.Eq{"is_default": true},
	)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, apperror.NewNotFound("location", "default")
	}
	return res.Items[0], nil
}

var (
	_ category.Repository = (*CategoryRepo)(nil)
	_ supplier.Repository = (*SupplierRepo)(nil)
	_ product.Repository  = (*ProductRepo)(nil)
	_ location.Repository = (*LocationRepo)(nil)
)
