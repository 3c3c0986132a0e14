package ledger

import (
	"context"
	"time"

	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain"
)

// StockLevelRepository persists derived stock levels.
type StockLevelRepository interface {
	// LockOrCreate returns the row for key locked for update, inserting an
	// empty row first when none exists. Must run inside a transaction.
	LockOrCreate(ctx context.Context, key StockKey) (*StockLevel, error)

	// GetForUpdate returns the row for key locked for update, or NotFound.
	GetForUpdate(ctx context.Context, key StockKey) (*StockLevel, error)

	// Save writes quantity and unit cost of an existing row.
	Save(ctx context.Context, level *StockLevel) error

	// Get returns the row for key without locking.
	Get(ctx context.Context, key StockKey) (*StockLevel, error)

	// List returns rows matching the filter, ordered by product then location.
	List(ctx context.Context, filter StockFilter) ([]*StockLevel, error)

	ExistsForProduct(ctx context.Context, productID id.ID) (bool, error)
	ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error)
}

// TransactionRepository persists stock movements.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	Update(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, txID id.ID) error

	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)

	// GetForUpdate returns the movement locked for update, or NotFound.
	GetForUpdate(ctx context.Context, txID id.ID) (*Transaction, error)

	// List returns movements newest first (transaction_date, then id).
	List(ctx context.Context, filter TransactionFilter) (domain.ListResult[*Transaction], error)

	// Totals aggregates movements matching the filter, ignoring pagination.
	Totals(ctx context.Context, filter TransactionFilter) (Totals, error)

	ExistsForProduct(ctx context.Context, productID id.ID) (bool, error)
	ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error)
	ExistsForReference(ctx context.Context, refType ReferenceType, refID id.ID) (bool, error)
}

// StockFilter narrows stock level queries.
type StockFilter struct {
	ProductID  *id.ID
	LocationID *id.ID
	// NonZero hides rows whose quantity is zero
	NonZero bool
}

// TransactionFilter narrows movement queries.
type TransactionFilter struct {
	ProductID     *id.ID
	LocationID    *id.ID
	Types         []TransactionType
	ReferenceType *ReferenceType
	ReferenceID   *id.ID
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// Normalize clamps pagination to allowed bounds.
func (f *TransactionFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > domain.MaxPageSize {
		f.Limit = domain.MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Totals are movement aggregates.
type Totals struct {
	Count      int64       `db:"count" json:"count"`
	StockIn    int64       `db:"stock_in" json:"stockIn"`
	StockOut   int64       `db:"stock_out" json:"stockOut"`
	TotalValue types.Money `db:"total_value" json:"totalValue"`
}

// Summary is the dashboard view of the ledger.
type Summary struct {
	Totals
	Recent []*Transaction `json:"recent"`
}

// ProductStock sums a product's stock across locations.
type ProductStock struct {
	ProductID id.ID         `json:"productId"`
	Quantity  int64         `json:"quantity"`
	Levels    []*StockLevel `json:"levels"`
}
