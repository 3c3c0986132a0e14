package memory

// Repositories bundles every table of one store.
type Repositories struct {
	Store *Store

	Categories     *CategoryRepo
	Suppliers      *SupplierRepo
	Products       *ProductRepo
	Locations      *LocationRepo
	StockLevels    *StockLevelRepo
	Transactions   *TransactionRepo
	PurchaseOrders *PurchaseOrderRepo
	Numerator      *Numerator
	Audit          *AuditLog
}

// NewRepositories creates an empty store with all tables registered.
func NewRepositories() *Repositories {
	s := NewStore()
	return &Repositories{
		Store:          s,
		Categories:     NewCategoryRepo(s),
		Suppliers:      NewSupplierRepo(s),
		Products:       NewProductRepo(s),
		Locations:      NewLocationRepo(s),
		StockLevels:    NewStockLevelRepo(s),
		Transactions:   NewTransactionRepo(s),
		PurchaseOrders: NewPurchaseOrderRepo(s),
		Numerator:      NewNumerator(s),
		Audit:          NewAuditLog(s),
	}
}
