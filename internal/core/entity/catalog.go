// Package entity provides core domain entities.
package entity

import (
	"context"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
)

// MaxNameLength bounds every catalog name.
const MaxNameLength = 255

// Catalog is the base type for reference data:
// products, categories, suppliers and locations.
type Catalog struct {
	BaseEntity

	// Name is the display name
	Name string `db:"name" json:"name"`

	Description *string `db:"description" json:"description,omitempty"`

	IsActive bool `db:"is_active" json:"isActive"`
}

// NewCatalog creates an active Catalog with generated ID.
func NewCatalog(name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       name,
		IsActive:   true,
	}
}

// GetName returns the display name.
func (c *Catalog) GetName() string {
	return c.Name
}

// Active reports the IsActive flag.
func (c *Catalog) Active() bool {
	return c.IsActive
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if len(c.Name) > MaxNameLength {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("max", MaxNameLength)
	}
	return nil
}

// Hierarchy is embedded by tree-shaped catalogs.
// Only the parent id is stored; children are found by lookup.
type Hierarchy struct {
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`
}

// GetParentID returns the parent reference.
func (h *Hierarchy) GetParentID() *id.ID {
	return h.ParentID
}

// IsRoot returns true if node has no parent.
func (h *Hierarchy) IsRoot() bool {
	return h.ParentID == nil || id.IsNil(*h.ParentID)
}
