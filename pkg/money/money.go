// Package money holds the two-decimal arithmetic shared by checkout, escrow and
// the wallet ledger. Amounts are shopspring decimals; rounding is half away
// from zero at two places.
package money

import "github.com/shopspring/decimal"

const Places = 2

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Round2 rounds to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns round2(amount * pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Split divides gross into the platform commission and the seller's share.
// commission = round2(gross * feePercent / 100); net = gross - commission.
func Split(gross, feePercent decimal.Decimal) (net, commission decimal.Decimal) {
	commission = Percent(gross, feePercent)
	return Round2(gross.Sub(commission)), commission
}

// Proportional returns round2(part / whole * total). A zero whole yields zero.
func Proportional(part, whole, total decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return Zero
	}
	return Round2(part.Mul(total).Div(whole))
}

// IsCents reports whether d has no sub-cent remainder.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(Round2(d))
}

// EqualCents compares two amounts after rounding both to cents.
func EqualCents(a, b decimal.Decimal) bool {
	return Round2(a).Equal(Round2(b))
}
