// Package decimal holds the euro arithmetic used for VAT checks.
package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var (
	hundred = decimal.NewFromInt(100)

	// Cent is the tolerance for comparing computed and printed amounts
	Cent = MustFromString("0.01")
)

// FrenchVATRates are the VAT rates applicable in France, in percent
var FrenchVATRates = []decimal.Decimal{
	decimal.NewFromInt(20),
	decimal.NewFromInt(10),
	MustFromString("5.5"),
	MustFromString("2.1"),
	decimal.Zero,
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundCents rounds to 2 decimal places
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ImpliedRate computes the VAT rate in percent from HT and TTC:
// (ttc - ht) / ht * 100, rounded to 2 places. Zero when ht is zero.
func ImpliedRate(ht, ttc decimal.Decimal) decimal.Decimal {
	if ht.IsZero() {
		return Zero
	}
	return ttc.Sub(ht).Div(ht).Mul(hundred).Round(2)
}

// CalculateVAT computes amount * rate / 100, rounded to the cent
func CalculateVAT(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

// LineTotal computes quantity * unit price, rounded to the cent
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// WithinCent reports whether a and b differ by at most one cent
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// IsValidRate reports whether rate is one of rates
func IsValidRate(rate decimal.Decimal, rates []decimal.Decimal) bool {
	for _, r := range rates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

// ClosestRate returns the entry of rates nearest to rate. Ties keep the
// earlier entry.
func ClosestRate(rate decimal.Decimal, rates []decimal.Decimal) decimal.Decimal {
	if len(rates) == 0 {
		return Zero
	}
	best := rates[0]
	for _, r := range rates[1:] {
		if r.Sub(rate).Abs().LessThan(best.Sub(rate).Abs()) {
			best = r
		}
	}
	return best
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
