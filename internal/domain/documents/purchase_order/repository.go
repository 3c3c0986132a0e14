package purchase_order

import (
	"context"
	"time"

	"stockroom/internal/core/id"
	"stockroom/internal/domain"
)

// Repository defines operations for purchase order documents.
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error)
	Update(ctx context.Context, po *PurchaseOrder) error
	Delete(ctx context.Context, poID id.ID) error

	// GetForUpdate locks the header row until the transaction ends.
	GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error)

	// Line operations
	GetItems(ctx context.Context, poID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, poID id.ID, items []Item) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error)

	ExistsByNumber(ctx context.Context, number string, excludeID *id.ID) (bool, error)
	ExistsForSupplier(ctx context.Context, supplierID id.ID) (bool, error)
	ExistsForProduct(ctx context.Context, productID id.ID) (bool, error)
}

// ListFilter for filtering purchase orders.
type ListFilter struct {
	// Search matches the order number
	Search     string
	SupplierID *id.ID
	Statuses   []Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// Normalize clamps pagination to allowed bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > domain.MaxPageSize {
		f.Limit = domain.MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
