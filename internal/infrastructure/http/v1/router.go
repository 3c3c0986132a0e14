// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockroom/internal/app"
	"stockroom/internal/infrastructure/http/v1/handlers"
	"stockroom/internal/infrastructure/http/v1/middleware"
	"stockroom/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the domain services behind the endpoints
	Services *app.Services

	// Ping backs the readiness probe
	Ping handlers.PingFunc

	// StorageDriver is reported by the readiness probe
	StorageDriver string

	// Version is reported by the readiness probe
	Version string

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Debug selects gin debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Ping, cfg.StorageDriver, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(protected.Group("/catalog"), base, cfg.Services)
	registerInventoryRoutes(protected.Group("/inventory"), base, cfg.Services)
	registerDocumentRoutes(protected.Group("/documents"), base, cfg.Services)

	return router
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	// --- PRODUCTS ---
	{
		handler := handlers.NewProductHandler(base, svc.Products)
		group := rg.Group("/products")
		group.GET("/barcode/:barcode", middleware.RequirePermission("catalog:product:read"), handler.GetByBarcode)
		RegisterCatalogRoutes(group, handler, "catalog:product")
	}

	// --- CATEGORIES ---
	RegisterCatalogRoutes(rg.Group("/categories"), handlers.NewCategoryHandler(base, svc.Categories), "catalog:category")

	// --- SUPPLIERS ---
	RegisterCatalogRoutes(rg.Group("/suppliers"), handlers.NewSupplierHandler(base, svc.Suppliers), "catalog:supplier")

	// --- LOCATIONS ---
	{
		handler := handlers.NewLocationHandler(base, svc.Locations)
		group := rg.Group("/locations")
		group.GET("/default", middleware.RequirePermission("catalog:location:read"), handler.GetDefault)
		RegisterCatalogRoutes(group, handler, "catalog:location")
	}
}

// registerInventoryRoutes registers ledger endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	handler := handlers.NewInventoryHandler(base, svc.Ledger)
	read := middleware.RequirePermission("inventory:read")

	txs := rg.Group("/transactions")
	txs.GET("", read, handler.ListTransactions)
	txs.POST("", middleware.RequirePermission("inventory:create"), handler.CreateTransaction)
	txs.GET("/:id", read, handler.GetTransaction)
	txs.PUT("/:id", middleware.RequirePermission("inventory:update"), handler.UpdateTransaction)
	txs.DELETE("/:id", middleware.RequirePermission("inventory:delete"), handler.DeleteTransaction)
	txs.GET("/:id/history", read, handler.TransactionHistory)
	txs.GET("/summary", read, handler.Summary)

	rg.GET("/stock", read, handler.Stock)
	rg.GET("/stock/products/:id", read, handler.ProductStock)
	rg.GET("/history/products/:id", read, handler.ProductHistory)
	rg.GET("/history/locations/:id", read, handler.LocationHistory)
}

// registerDocumentRoutes registers document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	handler := handlers.NewPurchaseOrderHandler(base, svc.PurchaseOrders)
	RegisterDocumentRoutes(rg.Group("/purchase-orders"), handler, "document:purchase_order")
}
