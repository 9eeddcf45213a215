package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// statVariance is the standard deviation of each stat expressed as a
// fraction of its expected value. Counting stats with small averages
// (steals, blocks) swing proportionally harder game to game.
var statVariance = map[PropType]float64{
	PropPoints:         0.25,
	PropRebounds:       0.30,
	PropAssists:        0.35,
	PropSteals:         0.50,
	PropBlocks:         0.50,
	PropThreesMade:     0.40,
	PropTurnovers:      0.40,
	PropFreeThrowsMade: 0.35,
}

const defaultVariance = 0.30

// minStdDev keeps the derived Gamma parameters away from degenerate
// distributions when the expected value is tiny.
const minStdDev = 0.01

// sampleStat draws one non-negative integer value for a single stat.
//
// The expectation blends recent form with the season baseline (60/40 when
// recent values exist), scaled by the combined form/home modifier. The
// draw comes from a Gamma distribution parameterized to that expectation:
// right-skewed and supported on [0, inf), which matches how counting stats
// actually distribute. Degenerate parameters fall back to the rounded
// expectation rather than failing the trial.
func (s *Simulator) sampleStat(seasonAvg float64, recent []float64, modifier float64, prop PropType) int {
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	blended := seasonAvg
	if len(recent) > 0 {
		blended = 0.6*stat.Mean(recent, nil) + 0.4*seasonAvg
	}

	expected := blended * modifier
	if expected < 0.1 {
		return 0
	}

	variance, ok := statVariance[prop]
	if !ok {
		variance = defaultVariance
	}
	stdDev := expected * variance
	if stdDev < minStdDev {
		stdDev = minStdDev
	}

	shape := (expected / stdDev) * (expected / stdDev)
	scale := stdDev * stdDev / expected
	if shape <= 0 || scale <= 0 || math.IsNaN(shape) || math.IsNaN(scale) {
		return int(math.Max(0, math.Round(expected)))
	}

	g := distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: s.src}
	value := g.Rand()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = expected
	}

	return int(math.Max(0, math.Round(value)))
}

// recentValues pulls one stat's column out of a game log.
func recentValues(games []GameStats, prop PropType) []float64 {
	vals := make([]float64, 0, len(games))
	for _, g := range games {
		vals = append(vals, StatValue(g, prop))
	}
	return vals
}
