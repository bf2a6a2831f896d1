package yieldpool

import "math/big"

// YearSeconds is the accrual denominator for the APY-equivalent rate.
const YearSeconds = 365 * 24 * 60 * 60

var bpsDenominator = big.NewInt(10_000)

// SimpleInterest computes principal * rateBps/10000 * elapsed/YearSeconds with
// flooring integer division. Non-positive inputs yield zero; interest is never
// negative.
func SimpleInterest(principal *big.Int, rateBps uint32, elapsed int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || elapsed <= 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, big.NewInt(int64(rateBps)))
	interest = interest.Mul(interest, big.NewInt(elapsed))
	interest = interest.Div(interest, bpsDenominator)
	return interest.Div(interest, big.NewInt(YearSeconds))
}

// EpochYield computes the per-session yield base: totalStaked * rateBps/10000.
func EpochYield(totalStaked *big.Int, rateBps uint32) *big.Int {
	if totalStaked == nil || totalStaked.Sign() <= 0 || rateBps == 0 {
		return big.NewInt(0)
	}
	yield := new(big.Int).Mul(totalStaked, big.NewInt(int64(rateBps)))
	return yield.Div(yield, bpsDenominator)
}

// ShareOf computes amount * shareBps/10000 with flooring division.
func ShareOf(amount *big.Int, shareBps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || shareBps == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, big.NewInt(int64(shareBps)))
	return share.Div(share, bpsDenominator)
}

// ProRata computes pot * stake / total with flooring division. A zero total
// yields zero.
func ProRata(pot, stake, total *big.Int) *big.Int {
	if pot == nil || pot.Sign() <= 0 || stake == nil || stake.Sign() <= 0 || total == nil || total.Sign() <= 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(pot, stake)
	return share.Div(share, total)
}
