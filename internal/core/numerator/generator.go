package numerator

import (
	"context"
	"time"
)

// Generator hands out sequential document numbers.
// Implementations must be safe for concurrent use and should join the
// transaction carried by ctx, so a rolled-back document does not burn a
// number.
type Generator interface {
	// GetNextNumber returns the next number of cfg's sequence for period.
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}
