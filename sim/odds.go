package sim

import (
	"math"
)

// houseEdge is the fraction of fair value paid out; a 10% take is baked
// into every multiplier.
const houseEdge = 0.90

// minPowerProbability floors the power-play adjusted win probability.
const minPowerProbability = 0.05

// minMultiplier guarantees a token payout on any correct pick.
const minMultiplier = 1.01

// PowerAdjustedProbability applies the power-play tier discount to a win
// probability. Boosted payouts come at the cost of a reduced effective
// chance to win:
//
//	2x  -> 10% reduction
//	3x  -> 20% reduction
//	5x  -> 30% reduction
//	10x -> 40% reduction
//
// Unknown multipliers get the smallest (10%) reduction. The result never
// drops below 0.05.
func PowerAdjustedProbability(probability, powerMultiplier float64) float64 {
	reduction := 0.90
	switch powerMultiplier {
	case 2.0:
		reduction = 0.90
	case 3.0:
		reduction = 0.80
	case 5.0:
		reduction = 0.70
	case 10.0:
		reduction = 0.60
	}
	return math.Max(minPowerProbability, probability*reduction)
}

// PayoutMultiplier converts a win probability into a payout multiplier
// using inverse-probability pricing with the house edge applied. For
// power-play bets the effective probability is discounted by tier and the
// resulting multiplier boosted by the tier multiplier. Pure function:
// the same inputs always produce the same multiplier.
func PayoutMultiplier(probability float64, mode BetMode, powerMultiplier float64) float64 {
	if mode == ModePowerPlay && powerMultiplier > 1 {
		probability = PowerAdjustedProbability(probability, powerMultiplier)
	}
	if probability > 1 {
		probability = 1
	}
	if probability < 0.001 {
		// Empirical probabilities of zero come from trial sets where the
		// line was never hit; cap the implied payout instead of dividing
		// by zero.
		probability = 0.001
	}

	fair := (1.0 / probability) * houseEdge
	if mode == ModePowerPlay && powerMultiplier > 1 {
		fair *= powerMultiplier
	}

	return math.Max(minMultiplier, round2(fair))
}

// ProbToMoneyline converts a win probability to rounded American odds for
// display. Returns 0 for probabilities without a meaningful line.
func ProbToMoneyline(p float64) int {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p >= 0.5 {
		raw := -p / (1 - p) * 100
		return int(math.Round(raw/10)) * 10
	}
	raw := (1 - p) / p * 100
	if raw < 200 {
		return int(math.Ceil(raw/10)) * 10
	}
	return int(math.Ceil(raw/25)) * 25
}
