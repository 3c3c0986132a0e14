package supplier

import (
	"context"

	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	domain.CatalogRepository[*Supplier]
}

// Service provides business logic for the Supplier catalog.
type Service struct {
	*domain.CatalogService[*Supplier]
}

// NewService creates a new Supplier service.
// Dependents (products, purchase orders) are registered by the caller.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "supplier",
		KeyField:   "code",
	})
	svc := &Service{CatalogService: base}

	base.Hooks().OnBeforeCreate(svc.prepare)
	base.Hooks().OnBeforeUpdate(svc.prepare)

	return svc
}

func (s *Service) prepare(_ context.Context, sup *Supplier) error {
	if sup.Code == "" {
		sup.Code = domain.CodeFromName(sup.Name, CodeWidth)
	}
	return nil
}
