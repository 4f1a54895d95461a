package numeric

// MaxFeePercent bounds the platform share of a payment.
const MaxFeePercent = 100

// SplitRevenue divides amount into the platform fee and the creator share.
// The fee is floor(amount*percent/100) and creator = amount - fee, so the two
// parts always add back to amount exactly.
func SplitRevenue(amount BigInt, percent uint64) (fee, creator BigInt) {
	if percent > MaxFeePercent {
		percent = MaxFeePercent
	}
	fee = amount.MulUint64(percent).DivUint64(100)
	creator = amount.Sub(fee)
	return fee, creator
}
