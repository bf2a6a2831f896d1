package payments

import "math/big"

var bpsDenominator = big.NewInt(10_000)

// SplitResult is the exact decomposition of a superchat's gross amount.
// Fee + SpeakerPayout + ListenerShare always equals Gross: the fee and the
// speaker payout floor, and the listener share absorbs both remainders.
type SplitResult struct {
	Fee           *big.Int
	SpeakerPayout *big.Int
	ListenerShare *big.Int
}

// Split applies the platform fee and the speaker/listener split to the gross
// amount. The caller is responsible for rejecting non-positive amounts.
func Split(gross *big.Int, feeBps, speakerShareBps uint32) SplitResult {
	result := SplitResult{
		Fee:           big.NewInt(0),
		SpeakerPayout: big.NewInt(0),
		ListenerShare: big.NewInt(0),
	}
	if gross == nil || gross.Sign() <= 0 {
		return result
	}
	fee := new(big.Int).Mul(gross, big.NewInt(int64(feeBps)))
	fee = fee.Div(fee, bpsDenominator)
	if fee.Cmp(gross) > 0 {
		fee = new(big.Int).Set(gross)
	}
	remainder := new(big.Int).Sub(gross, fee)
	payout := new(big.Int).Mul(remainder, big.NewInt(int64(speakerShareBps)))
	payout = payout.Div(payout, bpsDenominator)
	result.Fee = fee
	result.SpeakerPayout = payout
	result.ListenerShare = new(big.Int).Sub(remainder, payout)
	return result
}
