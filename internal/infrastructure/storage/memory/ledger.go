package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/core/types"
	"stockroom/internal/domain"
	"stockroom/internal/domain/ledger"
)

// StockLevelRepo stores derived stock levels.
// The store lock stands in for row locks.
type StockLevelRepo struct {
	store *Store
	rows  *table[ledger.StockKey, *ledger.StockLevel]
}

// NewStockLevelRepo creates the stock level table.
func NewStockLevelRepo(store *Store) *StockLevelRepo {
	return &StockLevelRepo{store: store, rows: newTable[ledger.StockKey](store, clonePtr[ledger.StockLevel])}
}

// LockOrCreate implements ledger.StockLevelRepository.
func (r *StockLevelRepo) LockOrCreate(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	if err := r.store.requireTx(ctx, "stock level lock"); err != nil {
		return nil, err
	}
	if level, ok := r.rows.get(key); ok {
		return level, nil
	}
	level := ledger.NewStockLevel(key)
	r.rows.put(key, level)
	return level, nil
}

// GetForUpdate implements ledger.StockLevelRepository.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	if err := r.store.requireTx(ctx, "stock level lock"); err != nil {
		return nil, err
	}
	level, ok := r.rows.get(key)
	if !ok {
		return nil, apperror.NewNotFound("stock level", key.ProductID.String()+"/"+key.LocationID.String())
	}
	return level, nil
}

// Save implements ledger.StockLevelRepository.
func (r *StockLevelRepo) Save(ctx context.Context, level *ledger.StockLevel) error {
	return r.store.within(ctx, func() error {
		current, ok := r.rows.rows[level.Key()]
		if !ok {
			return apperror.NewNotFound("stock level", level.ProductID.String()+"/"+level.LocationID.String())
		}
		level.CreatedAt = current.CreatedAt
		level.UpdatedAt = time.Now().UTC()
		r.rows.put(level.Key(), level)
		return nil
	})
}

// Get implements ledger.StockLevelRepository.
func (r *StockLevelRepo) Get(ctx context.Context, key ledger.StockKey) (*ledger.StockLevel, error) {
	var out *ledger.StockLevel
	err := r.store.within(ctx, func() error {
		level, ok := r.rows.get(key)
		if !ok {
			return apperror.NewNotFound("stock level", key.ProductID.String()+"/"+key.LocationID.String())
		}
		out = level
		return nil
	})
	return out, err
}

// List implements ledger.StockLevelRepository.
func (r *StockLevelRepo) List(ctx context.Context, filter ledger.StockFilter) ([]*ledger.StockLevel, error) {
	var out []*ledger.StockLevel
	err := r.store.within(ctx, func() error {
		r.rows.each(func(key ledger.StockKey, level *ledger.StockLevel) bool {
			if filter.ProductID != nil && key.ProductID != *filter.ProductID {
				return true
			}
			if filter.LocationID != nil && key.LocationID != *filter.LocationID {
				return true
			}
			if filter.NonZero && level.Quantity == 0 {
				return true
			}
			out = append(out, clonePtr(level))
			return true
		})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].LocationID[:], out[j].LocationID[:]) < 0
	})
	return out, err
}

func (r *StockLevelRepo) anyMatch(ctx context.Context, pred func(ledger.StockKey) bool) (bool, error) {
	var hit bool
	err := r.store.within(ctx, func() error {
		r.rows.each(func(key ledger.StockKey, _ *ledger.StockLevel) bool {
			hit = pred(key)
			return !hit
		})
		return nil
	})
	return hit, err
}

// ExistsForProduct implements ledger.StockLevelRepository.
func (r *StockLevelRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(k ledger.StockKey) bool { return k.ProductID == productID })
}

// ExistsForLocation implements ledger.StockLevelRepository.
func (r *StockLevelRepo) ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(k ledger.StockKey) bool { return k.LocationID == locationID })
}

// TransactionRepo stores stock movements.
type TransactionRepo struct {
	store *Store
	rows  *table[id.ID, *ledger.Transaction]
}

// NewTransactionRepo creates the transaction table.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store, rows: newTable[id.ID](store, clonePtr[ledger.Transaction])}
}

// Create implements ledger.TransactionRepository.
func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.rows.rows[t.ID]; ok {
			return apperror.NewDuplicate("transaction", "id", t.ID.String())
		}
		r.rows.put(t.ID, t)
		return nil
	})
}

// Update implements ledger.TransactionRepository.
func (r *TransactionRepo) Update(ctx context.Context, t *ledger.Transaction) error {
	return r.store.within(ctx, func() error {
		current, ok := r.rows.rows[t.ID]
		if !ok {
			return apperror.NewNotFound("transaction", t.ID.String())
		}
		t.CreatedAt = current.CreatedAt
		t.UpdatedAt = time.Now().UTC()
		r.rows.put(t.ID, t)
		return nil
	})
}

// Delete implements ledger.TransactionRepository.
func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	return r.store.within(ctx, func() error {
		if _, ok := r.rows.rows[txID]; !ok {
			return apperror.NewNotFound("transaction", txID.String())
		}
		delete(r.rows.rows, txID)
		return nil
	})
}

// GetByID implements ledger.TransactionRepository.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	var out *ledger.Transaction
	err := r.store.within(ctx, func() error {
		t, ok := r.rows.get(txID)
		if !ok {
			return apperror.NewNotFound("transaction", txID.String())
		}
		out = t
		return nil
	})
	return out, err
}

// GetForUpdate implements ledger.TransactionRepository.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	if err := r.store.requireTx(ctx, "transaction lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, txID)
}

func matchTransaction(t *ledger.Transaction, f ledger.TransactionFilter) bool {
	if f.ProductID != nil && t.ProductID != *f.ProductID {
		return false
	}
	if f.LocationID != nil && t.LocationID != *f.LocationID {
		return false
	}
	if len(f.Types) > 0 {
		hit := false
		for _, typ := range f.Types {
			if t.Type == typ {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.ReferenceType != nil && (t.ReferenceType == nil || *t.ReferenceType != *f.ReferenceType) {
		return false
	}
	if f.ReferenceID != nil && !id.Equal(t.ReferenceID, f.ReferenceID) {
		return false
	}
	if f.From != nil && t.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && t.TransactionDate.After(*f.To) {
		return false
	}
	return true
}

func (r *TransactionRepo) collect(f ledger.TransactionFilter) []*ledger.Transaction {
	var out []*ledger.Transaction
	r.rows.each(func(_ id.ID, t *ledger.Transaction) bool {
		if matchTransaction(t, f) {
			out = append(out, clonePtr(t))
		}
		return true
	})
	return out
}

// List implements ledger.TransactionRepository.
func (r *TransactionRepo) List(ctx context.Context, filter ledger.TransactionFilter) (domain.ListResult[*ledger.Transaction], error) {
	filter.Normalize()
	var res domain.ListResult[*ledger.Transaction]
	err := r.store.within(ctx, func() error {
		items := r.collect(filter)
		sort.Slice(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if !a.TransactionDate.Equal(b.TransactionDate) {
				return a.TransactionDate.After(b.TransactionDate)
			}
			return bytes.Compare(a.ID[:], b.ID[:]) > 0
		})
		res = domain.ListResult[*ledger.Transaction]{
			Items:      page(items, filter.Limit, filter.Offset),
			TotalCount: int64(len(items)),
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		}
		return nil
	})
	return res, err
}

// Totals implements ledger.TransactionRepository.
func (r *TransactionRepo) Totals(ctx context.Context, filter ledger.TransactionFilter) (ledger.Totals, error) {
	totals := ledger.Totals{TotalValue: types.Zero()}
	err := r.store.within(ctx, func() error {
		for _, t := range r.collect(filter) {
			totals.Count++
			switch t.Type {
			case ledger.TypeIn:
				totals.StockIn += t.Quantity
			case ledger.TypeOut, ledger.TypeDamage, ledger.TypeExpiry:
				totals.StockOut += t.Quantity
			}
			totals.TotalValue = totals.TotalValue.Add(t.TotalCost)
		}
		return nil
	})
	return totals, err
}

func (r *TransactionRepo) anyMatch(ctx context.Context, pred func(*ledger.Transaction) bool) (bool, error) {
	var hit bool
	err := r.store.within(ctx, func() error {
		r.rows.each(func(_ id.ID, t *ledger.Transaction) bool {
			hit = pred(t)
			return !hit
		})
		return nil
	})
	return hit, err
}

// ExistsForProduct implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(t *ledger.Transaction) bool { return t.ProductID == productID })
}

// ExistsForLocation implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(t *ledger.Transaction) bool { return t.LocationID == locationID })
}

// ExistsForReference implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForReference(ctx context.Context, refType ledger.ReferenceType, refID id.ID) (bool, error) {
	return r.anyMatch(ctx, func(t *ledger.Transaction) bool {
		return t.ReferenceType != nil && *t.ReferenceType == refType &&
			t.ReferenceID != nil && *t.ReferenceID == refID
	})
}

var (
	_ ledger.StockLevelRepository  = (*StockLevelRepo)(nil)
	_ ledger.TransactionRepository = (*TransactionRepo)(nil)
)
