// Package core holds the domain model of the warung ledger: money, menu
// items, the shopping cart and the two record sequences.
//
// Amounts are whole rupiah. There is no fractional currency anywhere in
// the system, so Money carries a single integer and all arithmetic stays
// exact.
package core

import "strconv"

// Money is an amount in whole rupiah.
type Money struct {
	Rupiah int64
}

func (m Money) Validate() error {
	if m.Rupiah < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Rupiah: m.Rupiah + other.Rupiah}
}

// Sub returns m - other. The result may be negative (net balances).
func (m Money) Sub(other Money) Money {
	return Money{Rupiah: m.Rupiah - other.Rupiah}
}

// Mul returns m scaled by a quantity.
func (m Money) Mul(qty int64) Money {
	return Money{Rupiah: m.Rupiah * qty}
}

func (m Money) String() string {
	return "Rp " + strconv.FormatInt(m.Rupiah, 10)
}

// ParseAmount converts user text into Money. Only plain non-negative
// decimal digits are accepted; anything else is ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	if !allDigits(s) {
		return Money{}, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Rupiah: v}, nil
}

// ParseQuantity converts user text into a cart quantity. Only plain
// decimal digits are accepted and the result must be positive.
func ParseQuantity(s string) (int64, error) {
	if !allDigits(s) {
		return 0, ErrInvalidQuantity
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidQuantity
	}
	return v, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
