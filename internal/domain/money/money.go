// Package money provides exact decimal helpers for currency amounts and
// integer quantities.
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the storefront's settlement currency.
const DefaultCurrency = "NGN"

// MaxQuantity bounds a single line's quantity.
const MaxQuantity = 9999

// ErrInvalidQuantity is returned when a quantity is outside [1, MaxQuantity].
var ErrInvalidQuantity = errors.New("quantity must be between 1 and 9999")

// minorUnits maps ISO 4217 codes to the number of decimal places of their
// minor unit. Currencies not listed use two places.
var minorUnits = map[string]int32{
	"NGN": 2,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"GHS": 2,
	"KES": 2,
	"JPY": 0,
}

var symbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// NormalizeCurrency uppercases and trims a currency code. An empty code maps to
// DefaultCurrency.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

// MinorUnits returns the number of decimal places used by currency.
func MinorUnits(currency string) int32 {
	if places, ok := minorUnits[NormalizeCurrency(currency)]; ok {
		return places
	}
	return 2
}

// Round rounds amount to the currency's minor unit using round-half-up.
// Amounts in this domain are non-negative, so half-away-from-zero and
// half-up agree.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnits(currency))
}

// LineTotal returns price × quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ClampNonNegative returns zero for negative amounts.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Clamp bounds d to [lo, hi]. hi wins when lo > hi.
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(d, lo), hi)
}

// ValidateQuantity rejects quantities outside [1, MaxQuantity].
func ValidateQuantity(quantity int) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// Format renders amount for user-facing messages, e.g. "₦10,000.00".
func Format(amount decimal.Decimal, currency string) string {
	currency = NormalizeCurrency(currency)
	places := MinorUnits(currency)
	s := Round(amount, currency).StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	prefix, ok := symbols[currency]
	if !ok {
		prefix = currency + " "
	}
	return sign + prefix + b.String()
}
