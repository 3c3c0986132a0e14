package product

import (
	"context"

	"stockroom/internal/core/id"
	"stockroom/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// GetByBarcode retrieves the product carrying barcode.
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)

	// ExistsByBarcode checks if another product already uses barcode.
	ExistsByBarcode(ctx context.Context, barcode string, excludeID *id.ID) (bool, error)

	// ExistsByCategory reports whether any product is filed under categoryID.
	ExistsByCategory(ctx context.Context, categoryID id.ID) (bool, error)

	// ExistsBySupplier reports whether any product is sourced from supplierID.
	ExistsBySupplier(ctx context.Context, supplierID id.ID) (bool, error)
}
