// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing goes through shopspring/decimal
// so that user text is never routed through float64.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// maxCents keeps cents arithmetic well inside int64 when summing many rows.
var maxCents = decimal.NewFromInt(1 << 53)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, exponents and thousands
// separators are rejected, as are zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
		}
	}
	if s == "." {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// Decimal returns the exact decimal value of the amount.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the plain machine form, e.g. "1234.50" or "-3.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float returns the value as a float64 for display and JSON.
// Use cents for calculations.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// Human renders the amount with thousands grouping, e.g. "1,234.50".
func (m Money) Human() string {
	return humanize.FormatFloat("#,###.##", m.Float())
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	m.Cents = d.Round(2).Shift(2).IntPart()
	return nil
}
