package app

import (
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/domain/ledger"
)

// Services holds every domain service, wired with its cross-catalog
// dependents.
type Services struct {
	Categories     *category.Service
	Suppliers      *supplier.Service
	Products       *product.Service
	Locations      *location.Service
	Ledger         *ledger.Service
	PurchaseOrders *po.Service
}

// NewServices wires services over storage. receivingCode names the location
// purchase orders are received into; empty means the default location.
func NewServices(s *Storage, receivingCode string) *Services {
	categories := category.NewService(s.Categories, s.TxManager)
	suppliers := supplier.NewService(s.Suppliers, s.TxManager)
	locations := location.NewService(s.Locations, s.TxManager)
	products := product.NewService(s.Products, s.TxManager, s.Categories, s.Suppliers)

	ledgerSvc := ledger.NewService(ledger.Config{
		Stock:        s.StockLevels,
		Transactions: s.Transactions,
		Products:     s.Products,
		Locations:    s.Locations,
		TxManager:    s.TxManager,
		Audit:        s.Audit,
	})

	orders := po.NewService(po.Config{
		Repo:       s.PurchaseOrders,
		Ledger:     ledgerSvc,
		Locations:  location.NewReceivingResolver(locations, receivingCode),
		Suppliers:  s.Suppliers,
		Products:   s.Products,
		Referenced: ledgerSvc.Referenced(ledger.RefPurchaseOrder),
		Numerator:  s.Numerator,
		TxManager:  s.TxManager,
		Audit:      s.Audit,
	})

	// Deletion constraints across catalogs
	categories.BlockDeleteWhen("products", products.InCategory)
	suppliers.BlockDeleteWhen("products", products.FromSupplier)
	suppliers.BlockDeleteWhen("purchase orders", orders.SupplierHasOrders)
	products.BlockDeleteWhen("stock levels", ledgerSvc.ProductHasStock)
	products.BlockDeleteWhen("transactions", ledgerSvc.ProductHasTransactions)
	products.BlockDeleteWhen("purchase orders", orders.ProductHasOrders)
	locations.BlockDeleteWhen("stock levels", ledgerSvc.LocationHasStock)
	locations.BlockDeleteWhen("transactions", ledgerSvc.LocationHasTransactions)

	return &Services{
		Categories:     categories,
		Suppliers:      suppliers,
		Products:       products,
		Locations:      locations,
		Ledger:         ledgerSvc,
		PurchaseOrders: orders,
	}
}
