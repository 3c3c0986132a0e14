// Package tx provides transaction management abstractions.
// Domain services depend on Manager; the PostgreSQL and in-memory stores
// provide the implementations.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every write made through ctx is discarded.
	// Nested calls join the transaction already carried by ctx.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
