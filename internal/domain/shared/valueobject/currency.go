package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is an ISO-4217 currency code.
type Currency string

const (
	VES Currency = "VES" // Venezuelan bolívar, default base currency
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is used when an invoice does not name one.
const DefaultCurrency = VES

// isoSupplement lists active ISO-4217 codes missing from the CLDR table
// bundled with x/text, with their minor-unit digits.
var isoSupplement = map[string]int32{
	"VES": 2, // bolívar soberano, replaced VEF in 2018
	"VED": 2, // bolívar digital
	"SLE": 2, // leone, replaced SLL
	"ZWG": 2, // Zimbabwe gold
}

// ParseCurrency normalizes code and checks it against the ISO-4217 table.
func ParseCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := isoSupplement[normalized]; ok {
		return Currency(normalized), nil
	}
	unit, err := currency.ParseISO(normalized)
	if err != nil {
		return "", fmt.Errorf("unknown currency code %q", code)
	}
	return Currency(unit.String()), nil
}

// IsValidCurrency reports whether code is a known ISO-4217 code.
func IsValidCurrency(code string) bool {
	_, err := ParseCurrency(code)
	return err == nil
}

// String returns the currency code.
func (c Currency) String() string {
	return string(c)
}

// Scale returns the number of minor-unit digits, e.g. 2 for USD and 0 for JPY.
// Unknown codes fall back to 2.
func (c Currency) Scale() int32 {
	if scale, ok := isoSupplement[string(c)]; ok {
		return scale
	}
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Round rounds d half-up to the minor unit. Monetary amounts in the engine
// are never negative, so half away from zero is half-up.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale())
}

// Epsilon is one minor unit, the tolerance used when comparing amounts.
func (c Currency) Epsilon() decimal.Decimal {
	return decimal.New(1, -c.Scale())
}

// Format renders d with exactly Scale() decimals.
func (c Currency) Format(d decimal.Decimal) string {
	return d.StringFixed(c.Scale())
}
