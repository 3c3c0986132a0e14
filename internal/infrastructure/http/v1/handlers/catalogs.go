package handlers

import (
	"github.com/gin-gonic/gin"

	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	"stockroom/internal/infrastructure/http/v1/dto"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	*CatalogHandler[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(base *BaseHandler, service *category.Service) *CategoryHandler {
	return &CategoryHandler{NewCatalogHandler(base, CatalogHandlerConfig[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]{
		Service:      service.CatalogService,
		MapCreateDTO: dto.CreateCategoryRequest.ToEntity,
		MapUpdateDTO: dto.UpdateCategoryRequest.Apply,
	})}
}

// SupplierHandler handles supplier endpoints.
type SupplierHandler struct {
	*CatalogHandler[*supplier.Supplier, dto.CreateSupplierRequest, dto.UpdateSupplierRequest]
}

// NewSupplierHandler creates a new supplier handler.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service) *SupplierHandler {
	return &SupplierHandler{NewCatalogHandler(base, CatalogHandlerConfig[*supplier.Supplier, dto.CreateSupplierRequest, dto.UpdateSupplierRequest]{
		Service:      service.CatalogService,
		MapCreateDTO: dto.CreateSupplierRequest.ToEntity,
		MapUpdateDTO: dto.UpdateSupplierRequest.Apply,
	})}
}

// ProductHandler handles product endpoints.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
			Service:      service.CatalogService,
			MapCreateDTO: dto.CreateProductRequest.ToEntity,
			MapUpdateDTO: dto.UpdateProductRequest.Apply,
		}),
		service: service,
	}
}

// GetByBarcode handles GET /products/barcode/:barcode.
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	p, err := h.service.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// LocationHandler handles location endpoints.
type LocationHandler struct {
	*CatalogHandler[*location.Location, dto.CreateLocationRequest, dto.UpdateLocationRequest]
	service *location.Service
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(base *BaseHandler, service *location.Service) *LocationHandler {
	return &LocationHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*location.Location, dto.CreateLocationRequest, dto.UpdateLocationRequest]{
			Service:      service.CatalogService,
			MapCreateDTO: dto.CreateLocationRequest.ToEntity,
			MapUpdateDTO: dto.UpdateLocationRequest.Apply,
		}),
		service: service,
	}
}

// GetDefault handles GET /locations/default.
func (h *LocationHandler) GetDefault(c *gin.Context) {
	loc, err := h.service.GetDefault(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}
