package product

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/tx"
	"stockroom/internal/domain"
)

// Exister checks that a referenced record exists.
type Exister interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

// Service provides business logic for the Product catalog.
type Service struct {
	*domain.CatalogService[*Product]
	repo       Repository
	categories Exister
	suppliers  Exister
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager, categories, suppliers Exister) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
		KeyField:   "sku",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		categories:     categories,
		suppliers:      suppliers,
	}

	base.Hooks().OnBeforeCreate(svc.prepare)
	base.Hooks().OnBeforeUpdate(svc.prepare)

	return svc
}

// prepare generates the SKU and checks barcode and references.
func (s *Service) prepare(ctx context.Context, p *Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		p.SKU = domain.CodeFromName(p.Name, SKUWidth)
	}

	if p.Barcode != nil {
		barcode := strings.TrimSpace(*p.Barcode)
		if barcode == "" {
			p.Barcode = nil
		} else {
			p.Barcode = &barcode
			taken, err := s.repo.ExistsByBarcode(ctx, barcode, &p.ID)
			if err != nil {
				return fmt.Errorf("check barcode: %w", err)
			}
			if taken {
				return apperror.NewDuplicate("product", "barcode", barcode)
			}
		}
	}

	if err := s.checkRef(ctx, s.categories, p.CategoryID, "category", "categoryId"); err != nil {
		return err
	}
	return s.checkRef(ctx, s.suppliers, p.SupplierID, "supplier", "supplierId")
}

func (s *Service) checkRef(ctx context.Context, repo Exister, ref *id.ID, entity, field string) error {
	if ref == nil || repo == nil {
		return nil
	}
	ok, err := repo.Exists(ctx, *ref)
	if err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	if !ok {
		return apperror.NewValidation(entity+" does not exist").
			WithDetail("field", field).
			WithDetail("value", ref.String())
	}
	return nil
}

// GetByBarcode looks a product up by its barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.GetByBarcode(ctx, strings.TrimSpace(barcode))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return p, nil
}

// InCategory is a UsageProbe for category deletion.
func (s *Service) InCategory(ctx context.Context, categoryID id.ID) (bool, error) {
	return s.repo.ExistsByCategory(ctx, categoryID)
}

// FromSupplier is a UsageProbe for supplier deletion.
func (s *Service) FromSupplier(ctx context.Context, supplierID id.ID) (bool, error) {
	return s.repo.ExistsBySupplier(ctx, supplierID)
}
