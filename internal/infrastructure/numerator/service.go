// Package numerator implements core/numerator.Generator on PostgreSQL.
package numerator

import (
	"context"
	"fmt"
	"time"

	corenumerator "stockroom/internal/core/numerator"
	"stockroom/internal/infrastructure/storage/postgres"
)

// QuerierSource yields the querier for ctx: the open transaction when there
// is one, so a rolled-back document releases its number.
type QuerierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Service draws numbers from the sys_sequences table.
type Service struct {
	source QuerierSource
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(source QuerierSource) *Service {
	return &Service{source: source}
}

const nextSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val
`

// GetNextNumber implements corenumerator.Generator.
// The upsert takes a row lock, so concurrent callers get distinct values.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil || s.source == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := cfg.Key(period)
	var num int64
	if err := s.source.GetQuerier(ctx).QueryRow(ctx, nextSQL, key).Scan(&num); err != nil {
		return "", postgres.MapError(err, "sequence", "next "+key)
	}
	return cfg.Format(period, num), nil
}
