package memory

import (
	"context"
	"time"

	"stockroom/internal/core/numerator"
)

// Numerator hands out per-period sequence numbers.
// Counters roll back with the surrounding transaction.
type Numerator struct {
	store    *Store
	counters *table[string, int64]
}

// NewNumerator creates the sequence table.
func NewNumerator(store *Store) *Numerator {
	return &Numerator{
		store:    store,
		counters: newTable[string](store, func(v int64) int64 { return v }),
	}
}

// GetNextNumber implements numerator.Generator.
func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	var next int64
	err := n.store.within(ctx, func() error {
		key := cfg.Key(period)
		next = n.counters.rows[key] + 1
		n.counters.rows[key] = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return cfg.Format(period, next), nil
}

var _ numerator.Generator = (*Numerator)(nil)
