package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLeg(label string, ppg, line float64, pick Pick) BetLeg {
	avg := testAverages(ppg)
	return BetLeg{
		Label:       label,
		Averages:    avg,
		RecentGames: testGameLog(int(ppg), int(ppg)+2, int(ppg)-1, int(ppg)+1, int(ppg)),
		Prop:        PropPoints,
		Line:        line,
		Pick:        pick,
		IsHome:      true,
	}
}

func TestValidateParlayLegCounts(t *testing.T) {
	one := []BetLeg{testLeg("A", 25, 24.5, PickOver)}
	assert.ErrorIs(t, ValidateParlay(one, ModeStandard), ErrTooFewLegs)

	two := append(one, testLeg("B", 20, 19.5, PickOver))
	assert.NoError(t, ValidateParlay(two, ModeStandard))
	assert.NoError(t, ValidateParlay(two, ModePowerPlay))

	// Flex needs three legs.
	assert.ErrorIs(t, ValidateParlay(two, ModeFlex), ErrFlexTooFewLegs)

	three := append(two, testLeg("C", 15, 14.5, PickOver))
	assert.NoError(t, ValidateParlay(three, ModeFlex))

	var seven []BetLeg
	for i := 0; i < 7; i++ {
		seven = append(seven, testLeg("X", 20, 19.5, PickOver))
	}
	assert.ErrorIs(t, ValidateParlay(seven, ModeStandard), ErrTooManyLegs)
}

func TestValidateParlayLegContents(t *testing.T) {
	badLine := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.3, PickOver),
	}
	err := ValidateParlay(badLine, ModeStandard)
	assert.ErrorIs(t, err, ErrInvalidLine)
	assert.Contains(t, err.Error(), "leg 2")

	noData := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		{Label: "ghost", Line: 10.5, Pick: PickOver, Prop: PropPoints},
	}
	assert.ErrorIs(t, ValidateParlay(noData, ModeStandard), ErrNoSeasonAverages)

	badPick := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, Pick("push")),
	}
	assert.ErrorIs(t, ValidateParlay(badPick, ModeStandard), ErrInvalidPick)
}

func TestSimulateParlayFlexRejectsTwoLegs(t *testing.T) {
	s := NewSimulatorSeeded(11, 11)

	legs := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, PickOver),
	}
	_, err := s.SimulateParlay(legs, 100, ModeFlex, 1)
	assert.ErrorIs(t, err, ErrFlexTooFewLegs)
}

func TestSimulateParlayStandard(t *testing.T) {
	s := NewSimulatorSeeded(12, 12)

	legs := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, PickOver),
		testLeg("C", 8, 14.5, PickUnder),
	}
	outcome, err := s.SimulateParlay(legs, 1000, ModeStandard, 1)
	assert.NoError(t, err)

	assert.Len(t, outcome.Legs, 3)
	assert.Equal(t, 1000, outcome.TrialsRun)
	assert.Equal(t, ModeStandard, outcome.BetMode)

	// The joint can never beat any single marginal.
	for _, leg := range outcome.Legs {
		assert.LessOrEqual(t, outcome.JointProbability, leg.WinProbability+0.001)
		assert.GreaterOrEqual(t, leg.WinProbability, 0.0)
		assert.LessOrEqual(t, leg.WinProbability, 1.0)
	}

	assert.GreaterOrEqual(t, outcome.Multiplier, 1.01)
	assert.Equal(t, outcome.StandardMultiplier, outcome.Multiplier)
}

func TestSimulateParlayFlex(t *testing.T) {
	s := NewSimulatorSeeded(13, 13)

	legs := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, PickOver),
		testLeg("C", 18, 17.5, PickOver),
	}
	outcome, err := s.SimulateParlay(legs, 1000, ModeFlex, 1)
	assert.NoError(t, err)

	assert.GreaterOrEqual(t, outcome.FlexProbability, outcome.JointProbability)
	assert.LessOrEqual(t, outcome.FlexProbability, 0.95)
	assert.Greater(t, outcome.FlexMultiplier, 0.0)
	// Tolerating a miss always pays less than a clean sweep.
	assert.Less(t, outcome.FlexMultiplier, outcome.StandardMultiplier)
}

func TestSimulateParlayPowerPlay(t *testing.T) {
	s := NewSimulatorSeeded(14, 14)

	legs := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, PickOver),
	}
	outcome, err := s.SimulateParlay(legs, 1000, ModePowerPlay, 5)
	assert.NoError(t, err)

	assert.Equal(t, 5.0, outcome.PowerMultiplier)
	// The boost outweighs the probability discount.
	assert.Greater(t, outcome.Multiplier, outcome.StandardMultiplier)
}

func TestSimulateParlayJointNearProductOfMarginals(t *testing.T) {
	s := NewSimulatorSeeded(15, 15)

	legs := []BetLeg{
		testLeg("A", 25, 24.5, PickOver),
		testLeg("B", 20, 19.5, PickOver),
	}
	outcome, err := s.SimulateParlay(legs, 1000, ModeStandard, 1)
	assert.NoError(t, err)

	product := outcome.Legs[0].WinProbability * outcome.Legs[1].WinProbability
	assert.InDelta(t, product, outcome.JointProbability, 0.06)
}
