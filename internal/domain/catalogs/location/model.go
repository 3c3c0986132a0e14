// Package location provides the storage location catalog.
// Locations form a tree (warehouse > aisle > shelf > bin) and at most one of
// them is the default location.
package location

import (
	"context"
	"strings"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/entity"
	"stockroom/internal/core/types"
	"stockroom/internal/domain"
)

// LocationType defines the kind of storage node.
type LocationType string

const (
	TypeWarehouse LocationType = "warehouse"
	TypeAisle     LocationType = "aisle"
	TypeSection   LocationType = "section"
	TypeRoom      LocationType = "room"
	TypeShelf     LocationType = "shelf"
	TypeBin       LocationType = "bin"
)

// IsValid reports whether t is a known location type.
func (t LocationType) IsValid() bool {
	switch t {
	case TypeWarehouse, TypeAisle, TypeSection, TypeRoom, TypeShelf, TypeBin:
		return true
	}
	return false
}

// Location represents a node in the storage tree.
type Location struct {
	entity.Catalog
	entity.Hierarchy

	// Code is unique across all locations
	Code string `db:"code" json:"code"`

	Type LocationType `db:"type" json:"type"`

	Address    *string `db:"address" json:"address,omitempty"`
	City       *string `db:"city" json:"city,omitempty"`
	Country    *string `db:"country" json:"country,omitempty"`
	PostalCode *string `db:"postal_code" json:"postalCode,omitempty"`

	Capacity     *types.Money `db:"capacity" json:"capacity,omitempty"`
	CapacityUnit string       `db:"capacity_unit" json:"capacityUnit"`

	// IsDefault marks the receiving location used when none is configured
	IsDefault bool `db:"is_default" json:"isDefault"`

	SortOrder int `db:"sort_order" json:"sortOrder"`
}

// NewLocation creates a new active Location.
func NewLocation(name string, locType LocationType) *Location {
	return &Location{
		Catalog:      entity.NewCatalog(name),
		Type:         locType,
		CapacityUnit: "cubic_meters",
	}
}

// UniqueKey implements domain.CatalogEntity.
func (l *Location) UniqueKey() string { return l.Code }

// SetUniqueKey implements domain.CatalogEntity.
func (l *Location) SetUniqueKey(key string) { l.Code = key }

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !l.Type.IsValid() {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	if l.ParentID != nil && *l.ParentID == l.ID {
		return apperror.NewValidation("a location cannot be its own parent").
			WithDetail("field", "parentId")
	}

	if l.Capacity != nil && types.IsNegative(*l.Capacity) {
		return apperror.NewValidation("capacity must not be negative").
			WithDetail("field", "capacity")
	}

	return nil
}

// GenerateCode builds the TYP-NAME code used when none was supplied.
func GenerateCode(name string, locType LocationType) string {
	typeCode := string(locType)
	if len(typeCode) > 3 {
		typeCode = typeCode[:3]
	}
	nameCode := domain.Alphanumeric(strings.ToUpper(name))
	if len(nameCode) > 4 {
		nameCode = nameCode[:4]
	}
	return strings.ToUpper(typeCode) + "-" + nameCode
}
