// Package money provides a value object for monetary amounts.
//
// Invariants:
//   - Amount is always stored in the smallest currency unit (e.g., cents for USD).
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
//   - All arithmetic operations require matching currencies.
package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/amirasaad/ledger/pkg/currency"
)

var (
	// ErrInvalidCurrency is returned when a currency code is invalid.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidDecimals is returned when an amount has more decimal
	// places than the currency allows.
	ErrInvalidDecimals = errors.New("amount has more decimal places than the currency allows")

	// ErrMismatchedCurrencies is returned when performing operations on
	// money with different currencies.
	ErrMismatchedCurrencies = errors.New("mismatched currencies")

	// ErrAmountExceedsMaxSafeInt is returned when an amount does not fit
	// in the smallest-unit representation.
	ErrAmountExceedsMaxSafeInt = errors.New("amount exceeds maximum safe integer value")
)

// Amount is a monetary amount as an integer in the smallest currency unit.
type Amount = int64

// Money represents a monetary value in a specific currency.
type Money struct {
	amount   Amount
	currency currency.Code
}

// New creates a Money value from a float amount in the main currency unit.
// The amount may not carry more decimal places than the currency allows.
func New(amount float64, code currency.Code) (Money, error) {
	if code == "" {
		code = currency.DefaultCurrency
	}
	if !currency.IsValidFormat(string(code)) {
		return Money{}, ErrInvalidCurrency
	}
	smallest, err := toSmallestUnit(amount, code)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: smallest, currency: code}, nil
}

// NewFromSmallestUnit creates a Money value directly from the smallest
// currency unit, as stored by the ledger.
func NewFromSmallestUnit(amount int64, code currency.Code) (Money, error) {
	if code == "" {
		code = currency.DefaultCurrency
	}
	if !currency.IsValidFormat(string(code)) {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount, currency: code}, nil
}

// Zero returns a zero Money value in the given currency.
func Zero(code currency.Code) Money {
	return Money{amount: 0, currency: code}
}

// Amount returns the amount in the smallest currency unit.
func (m Money) Amount() Amount { return m.amount }

// AmountFloat returns the amount as a float64 in the main currency unit.
func (m Money) AmountFloat() float64 {
	meta, err := currency.Get(m.currency)
	if err != nil {
		meta = currency.Meta{Decimals: currency.DefaultDecimals}
	}
	return float64(m.amount) / math.Pow10(meta.Decimals)
}

// Currency returns the currency code.
func (m Money) Currency() currency.Code { return m.currency }

// Add returns the sum of two Money values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrMismatchedCurrencies
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns the difference of two Money values of the same currency.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrMismatchedCurrencies
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Negate returns the Money value with the sign flipped.
func (m Money) Negate() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

// Equals reports whether two Money values have the same currency and amount.
func (m Money) Equals(other Money) bool {
	return m.IsSameCurrency(other) && m.amount == other.amount
}

// GreaterThan reports whether m is strictly greater than other.
func (m Money) GreaterThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrMismatchedCurrencies
	}
	return m.amount > other.amount, nil
}

// GreaterThanOrEqual reports whether m is greater than or equal to other.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrMismatchedCurrencies
	}
	return m.amount >= other.amount, nil
}

// LessThan reports whether m is strictly less than other.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrMismatchedCurrencies
	}
	return m.amount < other.amount, nil
}

// IsSameCurrency reports whether both values share a currency.
func (m Money) IsSameCurrency(other Money) bool {
	return m.currency == other.currency
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount > 0 }

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool { return m.amount < 0 }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount == 0 }

// String formats the amount with the currency's decimal places and code.
func (m Money) String() string {
	meta, err := currency.Get(m.currency)
	if err != nil {
		meta = currency.Meta{Decimals: currency.DefaultDecimals}
	}
	return fmt.Sprintf("%.*f %s", meta.Decimals, m.AmountFloat(), m.currency)
}

// toSmallestUnit converts a float amount to the smallest currency unit
// without floating-point drift, rejecting excess decimal places.
func toSmallestUnit(amount float64, code currency.Code) (int64, error) {
	meta, err := currency.Get(code)
	if err != nil {
		return 0, err
	}

	probe := fmt.Sprintf("%.10f", amount)
	if parts := strings.Split(probe, "."); len(parts) > 1 {
		decimals := strings.TrimRight(parts[1], "0")
		if len(decimals) > meta.Decimals {
			return 0, ErrInvalidDecimals
		}
	}

	rat, ok := new(big.Rat).SetString(fmt.Sprintf("%.*f", meta.Decimals, amount))
	if !ok {
		return 0, fmt.Errorf("invalid amount format: %f", amount)
	}
	scaled := new(big.Rat).Mul(rat, big.NewRat(int64(math.Pow10(meta.Decimals)), 1))
	if !scaled.IsInt() {
		return 0, ErrInvalidDecimals
	}
	num := scaled.Num()
	if !num.IsInt64() {
		return 0, ErrAmountExceedsMaxSafeInt
	}
	return num.Int64(), nil
}
