package location

import (
	"context"

	"stockroom/internal/core/id"
	"stockroom/internal/domain"
)

// Repository defines the interface for Location persistence.
type Repository interface {
	domain.CatalogRepository[*Location]

	// LockDefault holds a transaction-scoped lock over the default flag.
	LockDefault(ctx context.Context) error

	// ClearDefault clears the default flag on every location except keepID.
	ClearDefault(ctx context.Context, keepID id.ID) error

	// GetDefault returns the active default location.
	GetDefault(ctx context.Context) (*Location, error)
}
