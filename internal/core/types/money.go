// Package types provides common value types.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits stored for money columns.
const MoneyScale = 2

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// LineTotal returns quantity * unitCost.
func LineTotal(quantity int64, unitCost Money) Money {
	return unitCost.Mul(decimal.NewFromInt(quantity))
}

// IsNegative reports whether m is below zero.
func IsNegative(m Money) bool {
	return m.Sign() < 0
}
