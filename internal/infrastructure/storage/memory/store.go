// Package memory provides an in-process implementation of every repository.
// It backs the "memory" storage driver and the domain test suites.
//
// Transactions are serialised by a single store lock. Each table is
// snapshotted when a transaction begins and restored if it fails, so a
// failed operation leaves no partial writes behind.
package memory

import (
	"context"
	"fmt"
	"sync"

	"stockroom/internal/core/apperror"
)

// txKey marks a context that already holds the store lock.
type txKey struct{}

// snapshotter captures table state and returns a restore func.
type snapshotter interface {
	snapshot() func()
}

// Store owns the tables and the transaction lock.
type Store struct {
	mu     sync.Mutex
	tables []snapshotter
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) register(t snapshotter) {
	s.tables = append(s.tables, t)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction implements tx.Manager.
// Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restores := make([]func(), 0, len(s.tables))
	for _, t := range s.tables {
		restores = append(restores, t.snapshot())
	}

	defer func() {
		if p := recover(); p != nil {
			for _, restore := range restores {
				restore()
			}
			panic(p)
		}
		if err != nil {
			for _, restore := range restores {
				restore()
			}
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// within runs op under the store lock unless ctx already holds it.
func (s *Store) within(ctx context.Context, op func() error) error {
	if s.inTx(ctx) {
		return op()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op()
}

// requireTx rejects locking reads issued outside a transaction.
func (s *Store) requireTx(ctx context.Context, op string) error {
	if !s.inTx(ctx) {
		return apperror.NewInternal(fmt.Errorf("memory: %s requires a transaction", op))
	}
	return nil
}

// table is a keyed row set with value semantics on read and write.
type table[K comparable, V any] struct {
	rows  map[K]V
	clone func(V) V
}

func newTable[K comparable, V any](s *Store, clone func(V) V) *table[K, V] {
	t := &table[K, V]{rows: make(map[K]V), clone: clone}
	s.register(t)
	return t
}

func (t *table[K, V]) snapshot() func() {
	saved := make(map[K]V, len(t.rows))
	for k, v := range t.rows {
		saved[k] = t.clone(v)
	}
	return func() { t.rows = saved }
}

func (t *table[K, V]) get(k K) (V, bool) {
	v, ok := t.rows[k]
	if !ok {
		return v, false
	}
	return t.clone(v), true
}

func (t *table[K, V]) put(k K, v V) {
	t.rows[k] = t.clone(v)
}

// each visits stored rows without copying; callers must not retain them.
func (t *table[K, V]) each(fn func(K, V) bool) {
	for k, v := range t.rows {
		if !fn(k, v) {
			return
		}
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
