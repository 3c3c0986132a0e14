package dto

import (
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
)

// Catalog entities serialise themselves; responses use the domain types.

// --- Category ---

// CreateCategoryRequest for creating categories.
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	ParentID    *id.ID  `json:"parentId"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   int     `json:"sortOrder"`
}

// ToEntity builds a new category.
func (r CreateCategoryRequest) ToEntity() *category.Category {
	c := category.NewCategory(r.Name)
	c.Slug = r.Slug
	c.Description = r.Description
	c.ParentID = r.ParentID
	pick(&c.IsActive, r.IsActive)
	c.SortOrder = r.SortOrder
	return c
}

// UpdateCategoryRequest for updating categories.
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	ParentID    *id.ID  `json:"parentId"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// Apply copies set fields onto existing.
func (r UpdateCategoryRequest) Apply(c *category.Category) *category.Category {
	pick(&c.Name, r.Name)
	pick(&c.Slug, r.Slug)
	if r.Description != nil {
		c.Description = r.Description
	}
	if r.ParentID != nil {
		c.ParentID = r.ParentID
	}
	pick(&c.IsActive, r.IsActive)
	pick(&c.SortOrder, r.SortOrder)
	c.Version = r.Version
	return c
}

// --- Supplier ---

// CreateSupplierRequest for creating suppliers.
type CreateSupplierRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Code          string                 `json:"code"`
	Description   *string                `json:"description"`
	ContactPerson *string                `json:"contactPerson"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	Address       *string                `json:"address"`
	City          *string                `json:"city"`
	Country       *string                `json:"country"`
	Website       *string                `json:"website"`
	PaymentTerms  *supplier.PaymentTerms `json:"paymentTerms"`
	CreditLimit   *types.Money           `json:"creditLimit"`
	IsActive      *bool                  `json:"isActive"`
}

// ToEntity builds a new supplier.
func (r CreateSupplierRequest) ToEntity() *supplier.Supplier {
	s := supplier.NewSupplier(r.Name)
	s.Code = r.Code
	s.Description = r.Description
	s.ContactPerson = r.ContactPerson
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	s.City = r.City
	s.Country = r.Country
	s.Website = r.Website
	pick(&s.PaymentTerms, r.PaymentTerms)
	pick(&s.CreditLimit, r.CreditLimit)
	pick(&s.IsActive, r.IsActive)
	return s
}

// UpdateSupplierRequest for updating suppliers.
type UpdateSupplierRequest struct {
	Name          *string                `json:"name"`
	Code          *string                `json:"code"`
	Description   *string                `json:"description"`
	ContactPerson *string                `json:"contactPerson"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	Address       *string                `json:"address"`
	City          *string                `json:"city"`
	Country       *string                `json:"country"`
	Website       *string                `json:"website"`
	PaymentTerms  *supplier.PaymentTerms `json:"paymentTerms"`
	CreditLimit   *types.Money           `json:"creditLimit"`
	IsActive      *bool                  `json:"isActive"`
	Version       int                    `json:"version" binding:"required,min=1"`
}

// Apply copies set fields onto existing.
func (r UpdateSupplierRequest) Apply(s *supplier.Supplier) *supplier.Supplier {
	pick(&s.Name, r.Name)
	pick(&s.Code, r.Code)
	for dst, src := range map[**string]*string{
		&s.Description:   r.Description,
		&s.ContactPerson: r.ContactPerson,
		&s.Email:         r.Email,
		&s.Phone:         r.Phone,
		&s.Address:       r.Address,
		&s.City:          r.City,
		&s.Country:       r.Country,
		&s.Website:       r.Website,
	} {
		if src != nil {
			*dst = src
		}
	}
	pick(&s.PaymentTerms, r.PaymentTerms)
	pick(&s.CreditLimit, r.CreditLimit)
	pick(&s.IsActive, r.IsActive)
	s.Version = r.Version
	return s
}

// --- Product ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Name           string       `json:"name" binding:"required"`
	SKU            string       `json:"sku"`
	Barcode        *string      `json:"barcode"`
	Description    *string      `json:"description"`
	CategoryID     *id.ID       `json:"categoryId"`
	SupplierID     *id.ID       `json:"supplierId"`
	Brand          *string      `json:"brand"`
	Model          *string      `json:"model"`
	CostPrice      *types.Money `json:"costPrice"`
	SellingPrice   *types.Money `json:"sellingPrice"`
	WholesalePrice *types.Money `json:"wholesalePrice"`
	MinStockLevel  int64        `json:"minStockLevel"`
	MaxStockLevel  *int64       `json:"maxStockLevel"`
	UnitOfMeasure  string       `json:"unitOfMeasure"`
	IsActive       *bool        `json:"isActive"`
	IsTrackable    *bool        `json:"isTrackable"`
}

// ToEntity builds a new product.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Name)
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.Description = r.Description
	p.CategoryID = r.CategoryID
	p.SupplierID = r.SupplierID
	p.Brand = r.Brand
	p.Model = r.Model
	pick(&p.CostPrice, r.CostPrice)
	pick(&p.SellingPrice, r.SellingPrice)
	p.WholesalePrice = r.WholesalePrice
	p.MinStockLevel = r.MinStockLevel
	p.MaxStockLevel = r.MaxStockLevel
	if r.UnitOfMeasure != "" {
		p.UnitOfMeasure = r.UnitOfMeasure
	}
	pick(&p.IsActive, r.IsActive)
	pick(&p.IsTrackable, r.IsTrackable)
	return p
}

// UpdateProductRequest for updating products.
type UpdateProductRequest struct {
	Name           *string      `json:"name"`
	SKU            *string      `json:"sku"`
	Barcode        *string      `json:"barcode"`
	Description    *string      `json:"description"`
	CategoryID     *id.ID       `json:"categoryId"`
	SupplierID     *id.ID       `json:"supplierId"`
	Brand          *string      `json:"brand"`
	Model          *string      `json:"model"`
	CostPrice      *types.Money `json:"costPrice"`
	SellingPrice   *types.Money `json:"sellingPrice"`
	WholesalePrice *types.Money `json:"wholesalePrice"`
	MinStockLevel  *int64       `json:"minStockLevel"`
	MaxStockLevel  *int64       `json:"maxStockLevel"`
	UnitOfMeasure  *string      `json:"unitOfMeasure"`
	IsActive       *bool        `json:"isActive"`
	IsTrackable    *bool        `json:"isTrackable"`
	Version        int          `json:"version" binding:"required,min=1"`
}

// Apply copies set fields onto existing. An empty barcode clears it.
func (r UpdateProductRequest) Apply(p *product.Product) *product.Product {
	pick(&p.Name, r.Name)
	pick(&p.SKU, r.SKU)
	if r.Barcode != nil {
		p.Barcode = r.Barcode
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.CategoryID != nil {
		p.CategoryID = r.CategoryID
	}
	if r.SupplierID != nil {
		p.SupplierID = r.SupplierID
	}
	if r.Brand != nil {
		p.Brand = r.Brand
	}
	if r.Model != nil {
		p.Model = r.Model
	}
	pick(&p.CostPrice, r.CostPrice)
	pick(&p.SellingPrice, r.SellingPrice)
	if r.WholesalePrice != nil {
		p.WholesalePrice = r.WholesalePrice
	}
	pick(&p.MinStockLevel, r.MinStockLevel)
	if r.MaxStockLevel != nil {
		p.MaxStockLevel = r.MaxStockLevel
	}
	pick(&p.UnitOfMeasure, r.UnitOfMeasure)
	pick(&p.IsActive, r.IsActive)
	pick(&p.IsTrackable, r.IsTrackable)
	p.Version = r.Version
	return p
}

// --- Location ---

// CreateLocationRequest for creating locations.
type CreateLocationRequest struct {
	Name         string                `json:"name" binding:"required"`
	Code         string                `json:"code"`
	Type         location.LocationType `json:"type" binding:"required"`
	Description  *string               `json:"description"`
	ParentID     *id.ID                `json:"parentId"`
	Address      *string               `json:"address"`
	City         *string               `json:"city"`
	Country      *string               `json:"country"`
	PostalCode   *string               `json:"postalCode"`
	Capacity     *types.Money          `json:"capacity"`
	CapacityUnit string                `json:"capacityUnit"`
	IsActive     *bool                 `json:"isActive"`
	IsDefault    bool                  `json:"isDefault"`
	SortOrder    int                   `json:"sortOrder"`
}

// ToEntity builds a new location.
func (r CreateLocationRequest) ToEntity() *location.Location {
	l := location.NewLocation(r.Name, r.Type)
	l.Code = r.Code
	l.Description = r.Description
	l.ParentID = r.ParentID
	l.Address = r.Address
	l.City = r.City
	l.Country = r.Country
	l.PostalCode = r.PostalCode
	l.Capacity = r.Capacity
	if r.CapacityUnit != "" {
		l.CapacityUnit = r.CapacityUnit
	}
	pick(&l.IsActive, r.IsActive)
	l.IsDefault = r.IsDefault
	l.SortOrder = r.SortOrder
	return l
}

// UpdateLocationRequest for updating locations.
type UpdateLocationRequest struct {
	Name         *string                `json:"name"`
	Code         *string                `json:"code"`
	Type         *location.LocationType `json:"type"`
	Description  *string                `json:"description"`
	ParentID     *id.ID                 `json:"parentId"`
	Address      *string                `json:"address"`
	City         *string                `json:"city"`
	Country      *string                `json:"country"`
	PostalCode   *string                `json:"postalCode"`
	Capacity     *types.Money           `json:"capacity"`
	CapacityUnit *string                `json:"capacityUnit"`
	IsActive     *bool                  `json:"isActive"`
	IsDefault    *bool                  `json:"isDefault"`
	SortOrder    *int                   `json:"sortOrder"`
	Version      int                    `json:"version" binding:"required,min=1"`
}

// Apply copies set fields onto existing.
func (r UpdateLocationRequest) Apply(l *location.Location) *location.Location {
	pick(&l.Name, r.Name)
	pick(&l.Code, r.Code)
	pick(&l.Type, r.Type)
	for dst, src := range map[**string]*string{
		&l.Description: r.Description,
		&l.Address:     r.Address,
		&l.City:        r.City,
		&l.Country:     r.Country,
		&l.PostalCode:  r.PostalCode,
	} {
		if src != nil {
			*dst = src
		}
	}
	if r.ParentID != nil {
		l.ParentID = r.ParentID
	}
	if r.Capacity != nil {
		l.Capacity = r.Capacity
	}
	pick(&l.CapacityUnit, r.CapacityUnit)
	pick(&l.IsActive, r.IsActive)
	pick(&l.IsDefault, r.IsDefault)
	pick(&l.SortOrder, r.SortOrder)
	l.Version = r.Version
	return l
}
