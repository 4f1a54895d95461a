package numeric

import "github.com/shopspring/decimal"

const (
	// WeiDecimals is the exponent between the raw on-chain unit and its ETH projection.
	WeiDecimals = 18

	// RatioPrecision is the number of decimal places kept for every derived ratio.
	RatioPrecision = 18
)

// ToEther projects a wei amount onto a fixed-point ETH decimal.
func ToEther(wei BigInt) decimal.Decimal {
	return decimal.NewFromBigInt(wei.Big(), -WeiDecimals)
}

// Ratio returns num/den rounded half-up to RatioPrecision places, or 0 when den is 0.
// Callers always recompute it from the two integers; it is never accumulated.
func Ratio(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), RatioPrecision)
}

// Percent is Ratio scaled to 0..100.
func Percent(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num*100).DivRound(decimal.NewFromInt(den), RatioPrecision)
}
