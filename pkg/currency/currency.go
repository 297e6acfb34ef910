// Package currency holds ISO 4217 currency metadata used to interpret
// monetary amounts stored in the smallest currency unit.
package currency

import "errors"

// Code represents an ISO 4217 currency code (e.g., "USD", "EUR").
type Code string

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}

// Currency codes supported out of the box.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"
	EGP Code = "EGP"
	KWD Code = "KWD"
	CAD Code = "CAD"
	AUD Code = "AUD"
	CHF Code = "CHF"
)

const (
	// DefaultCurrency is the fallback currency code.
	DefaultCurrency = USD
	// DefaultDecimals is the default number of decimal places for currencies.
	DefaultDecimals = 2
)

// ErrUnsupportedCurrency is returned when a currency code is not registered.
var ErrUnsupportedCurrency = errors.New("currency not supported")

// Meta holds currency-specific metadata.
type Meta struct {
	Decimals int
	Symbol   string
}

var registry = map[Code]Meta{
	USD: {Decimals: 2, Symbol: "$"},
	EUR: {Decimals: 2, Symbol: "€"},
	GBP: {Decimals: 2, Symbol: "£"},
	JPY: {Decimals: 0, Symbol: "¥"},
	EGP: {Decimals: 2, Symbol: "£"},
	KWD: {Decimals: 3, Symbol: "د.ك"},
	CAD: {Decimals: 2, Symbol: "C$"},
	AUD: {Decimals: 2, Symbol: "A$"},
	CHF: {Decimals: 2, Symbol: "CHF"},
}

// IsValidFormat reports whether code looks like an ISO 4217 code
// (exactly three uppercase ASCII letters).
func IsValidFormat(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsSupported reports whether the currency code is registered.
func IsSupported(code Code) bool {
	_, ok := registry[code]
	return ok
}

// Get returns metadata for the given currency code.
func Get(code Code) (Meta, error) {
	meta, ok := registry[code]
	if !ok {
		return Meta{}, ErrUnsupportedCurrency
	}
	return meta, nil
}

// ListSupported returns all registered currency codes.
func ListSupported() []Code {
	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	return codes
}
