package arbitrage

import (
	"math"
	"strings"
)

// Kalshi fee schedule. Most series trade at the general rate; a known set
// of series qualifies for the maker rate.
const (
	makerFeeRate   = 0.0175
	generalFeeRate = 0.07
)

// makerFeeTickers is matched by substring containment against the market
// ticker. Containment can over-match related series; an exact prefix table
// would be stricter.
// TODO: replace containment with an explicit prefix-or-exact match policy.
var makerFeeTickers = []string{
	"KXBTCD",
	"KXBTC",
	"KXETHD",
	"KXETH",
	"KXINXU",
	"KXNASDAQ100U",
}

// feeRate returns the fee rate for a market ticker.
func feeRate(ticker string) float64 {
	upper := strings.ToUpper(ticker)
	for _, t := range makerFeeTickers {
		if strings.Contains(upper, t) {
			return makerFeeRate
		}
	}
	return generalFeeRate
}

// feePerContract computes the per-contract fee in dollars at price p:
// ceil(rate * C * p * (1-p) * 100) / 100 with C = 1, so the fee rounds up
// to the next cent.
func feePerContract(rate, price float64) float64 {
	return math.Ceil(rate*price*(1-price)*100) / 100
}

// effectiveBid is the fee-reduced sell price, clamped to [0,1].
func effectiveBid(ticker string, bid float64) float64 {
	return clamp01(bid - feePerContract(feeRate(ticker), bid))
}

// effectiveAsk is the fee-increased buy price, clamped to [0,1].
func effectiveAsk(ticker string, ask float64) float64 {
	return clamp01(ask + feePerContract(feeRate(ticker), ask))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
