package memory

import (
	"context"
	"sort"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	po "stockroom/internal/domain/documents/purchase_order"
)

// PurchaseOrderRepo stores purchase order headers and their lines.
type PurchaseOrderRepo struct {
	store   *Store
	headers *table[id.ID, *po.PurchaseOrder]
	items   *table[id.ID, []po.Item]
}

// NewPurchaseOrderRepo creates the purchase order tables.
func NewPurchaseOrderRepo(store *Store) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		store:   store,
		headers: newTable[id.ID](store, cloneHeader),
		items:   newTable[id.ID](store, cloneItems),
	}
}

// cloneHeader copies the header only; lines live in their own table.
func cloneHeader(p *po.PurchaseOrder) *po.PurchaseOrder {
	c := *p
	c.Items = nil
	return &c
}

func cloneItems(items []po.Item) []po.Item {
	return append([]po.Item(nil), items...)
}

// Create implements purchase_order.Repository.
func (r *PurchaseOrderRepo) Create(ctx context.Context, order *po.PurchaseOrder) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.headers.rows[order.ID]; ok {
			return apperror.NewDuplicate("purchase order", "id", order.ID.String())
		}
		if r.numberTaken(order.Number, nil) {
			return apperror.NewDuplicate("purchase order", "poNumber", order.Number)
		}
		r.headers.put(order.ID, order)
		return nil
	})
}

// GetByID implements purchase_order.Repository. Lines are not loaded.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*po.PurchaseOrder, error) {
	var out *po.PurchaseOrder
	err := r.store.within(ctx, func() error {
		header, ok := r.headers.get(poID)
		if !ok {
			return apperror.NewNotFound("purchase order", poID.String())
		}
		out = header
		return nil
	})
	return out, err
}

// GetForUpdate implements purchase_order.Repository.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, poID id.ID) (*po.PurchaseOrder, error) {
	if err := r.store.requireTx(ctx, "purchase order lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, poID)
}

// Update implements purchase_order.Repository with optimistic locking.
func (r *PurchaseOrderRepo) Update(ctx context.Context, order *po.PurchaseOrder) error {
	return r.store.within(ctx, func() error {
		current, ok := r.headers.rows[order.ID]
		if !ok {
			return apperror.NewNotFound("purchase order", order.ID.String())
		}
		if current.Version != order.Version {
			return apperror.NewConcurrentModification("purchase order", order.ID.String())
		}
		if r.numberTaken(order.Number, &order.ID) {
			return apperror.NewDuplicate("purchase order", "poNumber", order.Number)
		}
		order.Touch()
		order.Version = current.Version + 1
		r.headers.put(order.ID, order)
		return nil
	})
}

// Delete implements purchase_order.Repository. Lines go with the header.
func (r *PurchaseOrderRepo) Delete(ctx context.Context, poID id.ID) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.headers.rows[poID]; !ok {
			return apperror.NewNotFound("purchase order", poID.String())
		}
		delete(r.headers.rows, poID)
		delete(r.items.rows, poID)
		return nil
	})
}

// GetItems implements purchase_order.Repository.
func (r *PurchaseOrderRepo) GetItems(ctx context.Context, poID id.ID) ([]po.Item, error) {
	var out []po.Item
	err := r.store.within(ctx, func() error {
		items, _ := r.items.get(poID)
		out = items
		return nil
	})
	return out, err
}

// SaveItems implements purchase_order.Repository, replacing all lines.
func (r *PurchaseOrderRepo) SaveItems(ctx context.Context, poID id.ID, items []po.Item) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.headers.rows[poID]; !ok {
			return apperror.NewNotFound("purchase order", poID.String())
		}
		sorted := cloneItems(items)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LineNo < sorted[j].LineNo })
		r.items.put(poID, sorted)
		return nil
	})
}

// List implements purchase_order.Repository, newest order date first.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter po.ListFilter) (domain.ListResult[*po.PurchaseOrder], error) {
	filter.Normalize()
	var res domain.ListResult[*po.PurchaseOrder]
	err := r.store.within(ctx, func() error {
		var items []*po.PurchaseOrder
		r.headers.each(func(_ id.ID, h *po.PurchaseOrder) bool {
			if matchOrder(h, filter) {
				items = append(items, cloneHeader(h))
			}
			return true
		})
		sort.Slice(items, func(i, j int) bool {
			if !items[i].OrderDate.Equal(items[j].OrderDate) {
				return items[i].OrderDate.After(items[j].OrderDate)
			}
			return items[i].Number > items[j].Number
		})
		res = domain.ListResult[*po.PurchaseOrder]{
			Items:      page(items, filter.Limit, filter.Offset),
			TotalCount: int64(len(items)),
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		}
		return nil
	})
	return res, err
}

func matchOrder(h *po.PurchaseOrder, f po.ListFilter) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(h.Number), strings.ToLower(f.Search)) {
		return false
	}
	if f.SupplierID != nil && h.SupplierID != *f.SupplierID {
		return false
	}
	if len(f.Statuses) > 0 {
		hit := false
		for _, s := range f.Statuses {
			if h.Status == s {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.DateFrom != nil && h.OrderDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && h.OrderDate.After(*f.DateTo) {
		return false
	}
	return true
}

func (r *PurchaseOrderRepo) numberTaken(number string, excludeID *id.ID) bool {
	taken := false
	r.headers.each(func(rowID id.ID, h *po.PurchaseOrder) bool {
		if excludeID != nil && rowID == *excludeID {
			return true
		}
		taken = h.Number == number
		return !taken
	})
	return taken
}

// ExistsByNumber implements purchase_order.Repository.
func (r *PurchaseOrderRepo) ExistsByNumber(ctx context.Context, number string, excludeID *id.ID) (bool, error) {
	var taken bool
	err := r.store.within(ctx, func() error {
		taken = r.numberTaken(number, excludeID)
		return nil
	})
	return taken, err
}

// ExistsForSupplier implements purchase_order.Repository.
func (r *PurchaseOrderRepo) ExistsForSupplier(ctx context.Context, supplierID id.ID) (bool, error) {
	var hit bool
	err := r.store.within(ctx, func() error {
		r.headers.each(func(_ id.ID, h *po.PurchaseOrder) bool {
			hit = h.SupplierID == supplierID
			return !hit
		})
		return nil
	})
	return hit, err
}

// ExistsForProduct implements purchase_order.Repository.
func (r *PurchaseOrderRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	var hit bool
	err := r.store.within(ctx, func() error {
		r.items.each(func(_ id.ID, lines []po.Item) bool {
			for _, line := range lines {
				if line.ProductID == productID {
					hit = true
					break
				}
			}
			return !hit
		})
		return nil
	})
	return hit, err
}

var _ po.Repository = (*PurchaseOrderRepo)(nil)
