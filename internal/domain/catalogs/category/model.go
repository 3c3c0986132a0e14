// Package category provides the product category catalog.
package category

import (
	"context"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/entity"
)

// Category groups products into a tree.
type Category struct {
	entity.Catalog
	entity.Hierarchy

	// Slug is the unique URL-safe key
	Slug string `db:"slug" json:"slug"`

	SortOrder int `db:"sort_order" json:"sortOrder"`
}

// NewCategory creates a new active Category.
func NewCategory(name string) *Category {
	return &Category{Catalog: entity.NewCatalog(name)}
}

// UniqueKey implements domain.CatalogEntity.
func (c *Category) UniqueKey() string { return c.Slug }

// SetUniqueKey implements domain.CatalogEntity.
func (c *Category) SetUniqueKey(key string) { c.Slug = key }

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return apperror.NewValidation("a category cannot be its own parent").
			WithDetail("field", "parentId")
	}
	return nil
}
