package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayoutMultiplier(t *testing.T) {
	// (1/0.5) * 0.90 = 1.80
	assert.Equal(t, 1.80, PayoutMultiplier(0.5, ModeStandard, 1.0))

	// (1/0.75) * 0.90 = 1.20
	assert.Equal(t, 1.20, PayoutMultiplier(0.75, ModeStandard, 1.0))

	// Near-certain picks still pay the token minimum.
	assert.Equal(t, 1.01, PayoutMultiplier(0.95, ModeStandard, 1.0))
	assert.Equal(t, 1.01, PayoutMultiplier(1.0, ModeStandard, 1.0))
}

func TestPayoutMultiplierIdempotent(t *testing.T) {
	first := PayoutMultiplier(0.5, ModeStandard, 1.0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, PayoutMultiplier(0.5, ModeStandard, 1.0))
	}
}

func TestPayoutMultiplierMonotone(t *testing.T) {
	modes := []struct {
		mode  BetMode
		power float64
	}{
		{ModeStandard, 1.0},
		{ModePowerPlay, 2.0},
		{ModePowerPlay, 10.0},
		{ModeFlex, 1.0},
	}

	for _, m := range modes {
		prev := PayoutMultiplier(0.01, m.mode, m.power)
		assert.GreaterOrEqual(t, prev, 1.01)
		for p := 0.02; p <= 1.0; p += 0.01 {
			cur := PayoutMultiplier(p, m.mode, m.power)
			assert.GreaterOrEqual(t, cur, 1.01)
			assert.LessOrEqual(t, cur, prev, "multiplier must not increase with probability (mode=%s p=%.2f)", m.mode, p)
			prev = cur
		}
	}
}

func TestPowerAdjustedProbability(t *testing.T) {
	assert.InDelta(t, 0.45, PowerAdjustedProbability(0.5, 2.0), 1e-9)
	assert.InDelta(t, 0.40, PowerAdjustedProbability(0.5, 3.0), 1e-9)
	assert.InDelta(t, 0.35, PowerAdjustedProbability(0.5, 5.0), 1e-9)
	assert.InDelta(t, 0.30, PowerAdjustedProbability(0.5, 10.0), 1e-9)

	// Unknown tiers take the smallest reduction.
	assert.InDelta(t, 0.45, PowerAdjustedProbability(0.5, 4.0), 1e-9)

	// Floor at 0.05.
	assert.Equal(t, 0.05, PowerAdjustedProbability(0.01, 10.0))
}

func TestProbToMoneyline(t *testing.T) {
	assert.Equal(t, -100, ProbToMoneyline(0.5))
	assert.Equal(t, 300, ProbToMoneyline(0.25))
	assert.Equal(t, -300, ProbToMoneyline(0.75))
	assert.Equal(t, 0, ProbToMoneyline(0))
	assert.Equal(t, 0, ProbToMoneyline(1))
}
