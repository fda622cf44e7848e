// Package core holds the domain types shared by storage, services and the HTTP layer.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal money value with two fractional digits.
type Amount struct {
	decimal.Decimal
}

// ParseAmount parses a decimal string, rounding half away from zero to cents.
//
// Sign is not checked. Both "12.5" and "12.50" give the same Amount.
//
// Examples:
//
//	ParseAmount("12.5")   -> 12.50
//	ParseAmount("-3")     -> -3.00
//	ParseAmount("1.005")  -> 1.01
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Decimal: d.Round(2)}, nil
}

// IsZeroAmount reports whether s parses to exactly zero before rounding, so
// "0.004" is not zero even though it is stored as 0.00.
func IsZeroAmount(s string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	return err == nil && d.IsZero()
}

// MustAmount is ParseAmount for literals known to be valid.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic("core: invalid amount literal " + s)
	}
	return a
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (a Amount) String() string {
	return a.StringFixed(2)
}
