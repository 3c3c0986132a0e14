// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"time"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g. "PO")
	Prefix string

	// PeriodLayout is a time layout that scopes the sequence.
	// "200601" restarts numbering every month; empty never restarts.
	PeriodLayout string

	// PadWidth is the minimum width of the running number
	PadWidth int
}

// PurchaseOrderConfig yields numbers like PO2026100001.
func PurchaseOrderConfig() Config {
	return Config{
		Prefix:       "PO",
		PeriodLayout: "200601",
		PadWidth:     4,
	}
}

// Key identifies the sequence a number is drawn from.
func (c Config) Key(period time.Time) string {
	if c.PeriodLayout == "" {
		return c.Prefix
	}
	return c.Prefix + "_" + period.Format(c.PeriodLayout)
}

// Format renders the n-th number of the period.
func (c Config) Format(period time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 4
	}
	stamp := ""
	if c.PeriodLayout != "" {
		stamp = period.Format(c.PeriodLayout)
	}
	return fmt.Sprintf("%s%s%0*d", c.Prefix, stamp, width, n)
}
