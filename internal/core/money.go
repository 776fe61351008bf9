// Package core holds the domain model and the spending aggregation engine.
//
// This file defines the fixed-point monetary type used by every aggregate.
// Amounts always carry exactly two fractional digits; construction rounds
// half-up once, after which addition is exact and order-independent. Money
// is never represented as binary floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount with exactly two fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney is the additive identity.
var ZeroMoney = Money{}

// NewMoney rounds d half-up to two fractional digits.
func NewMoney(d decimal.Decimal) Money {
	return Money{d.Round(2)}
}

// ParseMoney parses a decimal string such as "12.34" or "12", rounding a
// third fractional digit half-up. Returns ErrInvalidAmount for anything
// that is not a plain decimal number.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// Add returns m + o. Both operands already hold two fractional digits, so
// the sum is exact and independent of summation order.
func (m Money) Add(o Money) Money {
	return Money{m.d.Add(o.d)}
}

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Decimal exposes the underlying value for storage adapters.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the amount with two fractional digits, e.g. "15.50".
func (m Money) String() string { return m.d.StringFixed(2) }

// MarshalJSON emits a bare JSON number with two fractional digits, matching
// the numeric payloads of the public API.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = ZeroMoney
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	*m = NewMoney(d)
	return nil
}
