// Package product provides the product catalog.
package product

import (
	"context"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/entity"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
)

// SKUWidth is the length of a generated SKU.
const SKUWidth = 8

// Product is a stockable item.
type Product struct {
	entity.Catalog

	// SKU is unique across all products
	SKU string `db:"sku" json:"sku"`

	// Barcode is optional, unique when present
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	CategoryID *id.ID `db:"category_id" json:"categoryId,omitempty"`
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	Brand *string `db:"brand" json:"brand,omitempty"`
	Model *string `db:"model" json:"model,omitempty"`

	CostPrice      types.Money  `db:"cost_price" json:"costPrice"`
	SellingPrice   types.Money  `db:"selling_price" json:"sellingPrice"`
	WholesalePrice *types.Money `db:"wholesale_price" json:"wholesalePrice,omitempty"`

	MinStockLevel int64  `db:"min_stock_level" json:"minStockLevel"`
	MaxStockLevel *int64 `db:"max_stock_level" json:"maxStockLevel,omitempty"`

	UnitOfMeasure string `db:"unit_of_measure" json:"unitOfMeasure"`

	// IsTrackable marks products whose stock is tracked by the ledger
	IsTrackable bool `db:"is_trackable" json:"isTrackable"`
}

// NewProduct creates a new active, trackable Product.
func NewProduct(name string) *Product {
	return &Product{
		Catalog:       entity.NewCatalog(name),
		CostPrice:     types.Zero(),
		SellingPrice:  types.Zero(),
		UnitOfMeasure: "piece",
		IsTrackable:   true,
	}
}

// UniqueKey implements domain.CatalogEntity.
func (p *Product) UniqueKey() string { return p.SKU }

// SetUniqueKey implements domain.CatalogEntity.
func (p *Product) SetUniqueKey(key string) { p.SKU = key }

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	prices := []struct {
		field string
		value *types.Money
	}{
		{"costPrice", &p.CostPrice},
		{"sellingPrice", &p.SellingPrice},
		{"wholesalePrice", p.WholesalePrice},
	}
	for _, pr := range prices {
		if pr.value != nil && types.IsNegative(*pr.value) {
			return apperror.NewValidation(pr.field + " must not be negative").
				WithDetail("field", pr.field)
		}
	}

	if p.MinStockLevel < 0 {
		return apperror.NewValidation("minStockLevel must not be negative").
			WithDetail("field", "minStockLevel")
	}
	if p.MaxStockLevel != nil && *p.MaxStockLevel < p.MinStockLevel {
		return apperror.NewValidation("maxStockLevel must not be below minStockLevel").
			WithDetail("field", "maxStockLevel")
	}

	if p.UnitOfMeasure == "" {
		return apperror.NewValidation("unitOfMeasure is required").
			WithDetail("field", "unitOfMeasure")
	}

	return nil
}
