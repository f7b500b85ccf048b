// Package transform holds the pure raw -> trusted -> refined computations.
// Nothing here touches storage; callers pass one layer in and get the next layer back.
package transform

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits kept for every stored quantity.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Fixed rounds to Scale digits, half away from zero, the way a DECIMAL(p,2) cast does.
func Fixed(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// SafeRatio divides num by den and returns zero when den is not positive.
func SafeRatio(num, den decimal.Decimal) decimal.Decimal {
	if den.Sign() <= 0 {
		return decimal.Zero
	}
	return Fixed(num.Div(den))
}

// SafePercent is SafeRatio scaled to a percentage.
func SafePercent(num, den decimal.Decimal) decimal.Decimal {
	if den.Sign() <= 0 {
		return decimal.Zero
	}
	return Fixed(num.Div(den).Mul(hundred))
}

// mean returns the unrounded arithmetic mean, zero for an empty set.
func mean(sum decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
