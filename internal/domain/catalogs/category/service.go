package category

import (
	"context"

	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
)

const entityName = "category"

// Repository defines the interface for Category persistence.
type Repository interface {
	domain.CatalogRepository[*Category]
}

// Service provides business logic for the Category catalog.
type Service struct {
	*domain.CatalogService[*Category]
}

// NewService creates a new Category service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: entityName,
		KeyField:   "slug",
	})
	svc := &Service{CatalogService: base}

	base.Hooks().OnBeforeCreate(svc.prepare)
	base.Hooks().OnBeforeUpdate(svc.prepare)
	base.BlockDeleteWhen("child categories", base.HasChildren)

	return svc
}

func (s *Service) prepare(ctx context.Context, c *Category) error {
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	} else {
		c.Slug = domain.Slugify(c.Slug)
	}
	return domain.CheckParent(ctx, entityName, c.ID, c.ParentID, s.ParentOf)
}
