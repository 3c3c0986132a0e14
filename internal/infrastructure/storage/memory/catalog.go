package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
)

type activeFlag interface {
	Active() bool
}

// CatalogRepo is a generic in-memory catalog repository.
type CatalogRepo[T domain.CatalogEntity] struct {
	store      *Store
	rows       *table[id.ID, T]
	entityName string
	keyField   string
}

// NewCatalogRepo creates a catalog table inside store.
func NewCatalogRepo[T domain.CatalogEntity](store *Store, entityName, keyField string, clone func(T) T) *CatalogRepo[T] {
	return &CatalogRepo[T]{
		store:      store,
		rows:       newTable[id.ID](store, clone),
		entityName: entityName,
		keyField:   keyField,
	}
}

func (r *CatalogRepo[T]) keyTaken(key string, excludeID *id.ID) bool {
	taken := false
	r.rows.each(func(rowID id.ID, row T) bool {
		if excludeID != nil && rowID == *excludeID {
			return true
		}
		if row.UniqueKey() == key {
			taken = true
			return false
		}
		return true
	})
	return taken
}

// Create inserts a new entity.
func (r *CatalogRepo[T]) Create(ctx context.Context, e T) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.rows.rows[e.GetID()]; ok {
			return apperror.NewDuplicate(r.entityName, "id", e.GetID().String())
		}
		if r.keyTaken(e.UniqueKey(), nil) {
			return apperror.NewDuplicate(r.entityName, r.keyField, e.UniqueKey())
		}
		r.rows.put(e.GetID(), e)
		return nil
	})
}

// GetByID retrieves entity by ID.
func (r *CatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	var out T
	err := r.store.within(ctx, func() error {
		row, ok := r.rows.get(entityID)
		if !ok {
			return apperror.NewNotFound(r.entityName, entityID.String())
		}
		out = row
		return nil
	})
	return out, err
}

// GetByKey retrieves entity by its unique key.
func (r *CatalogRepo[T]) GetByKey(ctx context.Context, key string) (T, error) {
	var out T
	err := r.store.within(ctx, func() error {
		found := false
		r.rows.each(func(_ id.ID, row T) bool {
			if row.UniqueKey() == key {
				out = r.rows.clone(row)
				found = true
				return false
			}
			return true
		})
		if !found {
			return apperror.NewNotFound(r.entityName, key)
		}
		return nil
	})
	return out, err
}

// Update replaces the stored entity when the version matches.
func (r *CatalogRepo[T]) Update(ctx context.Context, e T) error {
	return r.store.within(ctx, func() error {
		current, ok := r.rows.rows[e.GetID()]
		if !ok {
			return apperror.NewNotFound(r.entityName, e.GetID().String())
		}
		if current.GetVersion() != e.GetVersion() {
			return apperror.NewConcurrentModification(r.entityName, e.GetID().String())
		}
		entityID := e.GetID()
		if r.keyTaken(e.UniqueKey(), &entityID) {
			return apperror.NewDuplicate(r.entityName, r.keyField, e.UniqueKey())
		}
		e.Touch()
		e.SetVersion(current.GetVersion() + 1)
		r.rows.put(entityID, e)
		return nil
	})
}

// Delete physically removes the entity.
func (r *CatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.rows.rows[entityID]; !ok {
			return apperror.NewNotFound(r.entityName, entityID.String())
		}
		delete(r.rows.rows, entityID)
		return nil
	})
}

// List retrieves entities with filtering and pagination.
func (r *CatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	filter.Normalize()
	return r.listWhere(ctx, filter, nil)
}

func (r *CatalogRepo[T]) listWhere(ctx context.Context, filter domain.ListFilter, extra func(T) bool) (domain.ListResult[T], error) {
	var res domain.ListResult[T]
	err := r.store.within(ctx, func() error {
		var items []T
		r.rows.each(func(_ id.ID, row T) bool {
			if matchCatalog(row, filter) && (extra == nil || extra(row)) {
				items = append(items, r.rows.clone(row))
			}
			return true
		})
		sortCatalog(items, filter.OrderBy)
		res = domain.ListResult[T]{
			Items:      page(items, filter.Limit, filter.Offset),
			TotalCount: int64(len(items)),
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		}
		return nil
	})
	return res, err
}

func matchCatalog[T domain.CatalogEntity](row T, f domain.ListFilter) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(row.GetName()), q) &&
			!strings.Contains(strings.ToLower(row.UniqueKey()), q) {
			return false
		}
	}
	if len(f.IDs) > 0 {
		hit := false
		for _, want := range f.IDs {
			if row.GetID() == want {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.ParentID != nil {
		h, ok := any(row).(domain.Hierarchical)
		if !ok || !id.Equal(h.GetParentID(), f.ParentID) {
			return false
		}
	}
	if f.IsActive != nil {
		a, ok := any(row).(activeFlag)
		if ok && a.Active() != *f.IsActive {
			return false
		}
	}
	return true
}

// sortCatalog orders by name (default), key or creation. UUIDv7 ids are
// time-ordered, so creation order follows the id.
func sortCatalog[T domain.CatalogEntity](items []T, orderBy string) {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")

	less := func(a, b T) bool {
		switch field {
		case "created_at":
			ai, bi := a.GetID(), b.GetID()
			return bytes.Compare(ai[:], bi[:]) < 0
		case "code", "sku", "slug":
			return a.UniqueKey() < b.UniqueKey()
		default:
			return strings.ToLower(a.GetName()) < strings.ToLower(b.GetName())
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// Exists checks if entity with given ID exists.
func (r *CatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	var ok bool
	err := r.store.within(ctx, func() error {
		_, ok = r.rows.rows[entityID]
		return nil
	})
	return ok, err
}

// ExistsByKey checks if another entity already uses key.
func (r *CatalogRepo[T]) ExistsByKey(ctx context.Context, key string, excludeID *id.ID) (bool, error) {
	var taken bool
	err := r.store.within(ctx, func() error {
		taken = r.keyTaken(key, excludeID)
		return nil
	})
	return taken, err
}

func (r *CatalogRepo[T]) anyMatch(ctx context.Context, pred func(T) bool) (bool, error) {
	var hit bool
	err := r.store.within(ctx, func() error {
		r.rows.each(func(_ id.ID, row T) bool {
			hit = pred(row)
			return !hit
		})
		return nil
	})
	return hit, err
}

// --- Concrete catalogs ---

// CategoryRepo stores categories.
type CategoryRepo struct {
	*CatalogRepo[*category.Category]
}

// NewCategoryRepo creates the category table.
func NewCategoryRepo(store *Store) *CategoryRepo {
	return &CategoryRepo{NewCatalogRepo(store, "category", "slug", clonePtr[category.Category])}
}

// SupplierRepo stores suppliers.
type SupplierRepo struct {
	*CatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates the supplier table.
func NewSupplierRepo(store *Store) *SupplierRepo {
	return &SupplierRepo{NewCatalogRepo(store, "supplier", "code", clonePtr[supplier.Supplier])}
}

// ProductRepo stores products.
type ProductRepo struct {
	*CatalogRepo[*product.Product]
}

// NewProductRepo creates the product table.
func NewProductRepo(store *Store) *ProductRepo {
	return &ProductRepo{NewCatalogRepo(store, "product", "sku", clonePtr[product.Product])}
}

// GetByBarcode retrieves the product carrying barcode.
func (r *ProductRepo) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	res, err := r.listWhere(ctx, domain.ListFilter{Limit: 1}, func(p *product.Product) bool {
		return p.Barcode != nil && *p.Barcode == barcode
	})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, apperror.NewNotFound("product", barcode)
	}
	return res.Items[0], nil
}

// ExistsByBarcode checks if another product already uses barcode.
func (r *ProductRepo) ExistsByBarcode(ctx context.Context, barcode string, excludeID *id.ID) (bool, error) {
	return r.anyMatch(ctx, func(p *product.Product) bool {
		if excludeID != nil && p.ID == *excludeID {
			return false
		}
		return p.Barcode != nil && *p.Barcode == barcode
	})
}

// ExistsByCategory reports whether any product is filed under categoryID.
func (r *ProductRepo) ExistsByCategory(ctx context.Context, categoryID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(p *product.Product) bool {
		return p.CategoryID != nil && *p.CategoryID == categoryID
	})
}

// ExistsBySupplier reports whether any product is sourced from supplierID.
func (r *ProductRepo) ExistsBySupplier(ctx context.Context, supplierID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(p *product.Product) bool {
		return p.SupplierID != nil && *p.SupplierID == supplierID
	})
}

// LocationRepo stores locations.
type LocationRepo struct {
	*CatalogRepo[*location.Location]
}

// NewLocationRepo creates the location table.
func NewLocationRepo(store *Store) *LocationRepo {
	return &LocationRepo{NewCatalogRepo(store, "location", "code", clonePtr[location.Location])}
}

// LockDefault implements location.Repository. The store lock already
// serialises writers.
func (r *LocationRepo) LockDefault(ctx context.Context) error {
	return r.store.requireTx(ctx, "default lock")
}

// ClearDefault clears the default flag on every location except keepID.
func (r *LocationRepo) ClearDefault(ctx context.Context, keepID id.ID) error {
	return r.store.within(ctx, func() error {
		for rowID, loc := range r.rows.rows {
			if rowID != keepID && loc.IsDefault {
				loc.IsDefault = false
				loc.Touch()
				loc.Version++
			}
		}
		return nil
	})
}

// GetDefault returns the active default location.
func (r *LocationRepo) GetDefault(ctx context.Context) (*location.Location, error) {
	active := true
	res, err := r.listWhere(ctx, domain.ListFilter{IsActive: &active, OrderBy: "created_at", Limit: 1}, func(l *location.Location) bool {
		return l.IsDefault
	})
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
