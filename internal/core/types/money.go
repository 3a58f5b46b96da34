// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in tax math
// and ledger balances.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
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

// Round2 rounds to 2 decimal places (minor currency unit).
// Used where amounts leave the calculation layer: ledger lines,
// balance-adjustment deltas, persisted totals.
func Round2(m Money) Money {
	return m.Round(2)
}

// Tolerance is the maximum accepted debit/credit divergence for a
// journal entry. Internal math is decimal so in practice entries
// balance exactly; the tolerance only absorbs rounding of imported data.
var Tolerance = decimal.New(1, -2) // 0.01

// WithinTolerance reports whether two amounts differ by less than Tolerance.
func WithinTolerance(a, b Money) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// NegAbs returns a strictly non-positive magnitude: -abs(m).
// Credit-note amounts are normalized through this so they always
// reduce balances regardless of the source sign.
func NegAbs(m Money) Money {
	return m.Abs().Neg()
}
