package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func gamesWithPoints(points ...int) []GameStats {
	games := make([]GameStats, len(points))
	for i, p := range points {
		games[i] = GameStats{Points: p}
	}
	return games
}

func TestAssessFormNotEnoughGames(t *testing.T) {
	assert.Equal(t, FormNormal, AssessForm(nil))
	assert.Equal(t, FormNormal, AssessForm(gamesWithPoints(30)))
	assert.Equal(t, FormNormal, AssessForm(gamesWithPoints(30, 35)))
}

func TestAssessFormBuckets(t *testing.T) {
	// 10,10 -> 30,30 is a +200% swing.
	assert.Equal(t, FormHot, AssessForm(gamesWithPoints(10, 10, 30, 30)))

	// 20,20 -> 21,22 is +7.5%.
	assert.Equal(t, FormWarm, AssessForm(gamesWithPoints(20, 20, 21, 22)))

	// 20,20 -> 20,20 is flat.
	assert.Equal(t, FormNormal, AssessForm(gamesWithPoints(20, 20, 20, 20)))

	// 20,20 -> 19,18 is -7.5%.
	assert.Equal(t, FormCold, AssessForm(gamesWithPoints(20, 20, 19, 18)))

	// 20,20 -> 10,10 is -50%.
	assert.Equal(t, FormIceCold, AssessForm(gamesWithPoints(20, 20, 10, 10)))
}

func TestAssessFormOddCountExcludesMiddle(t *testing.T) {
	// Halves are [8,8] and [24,24]; the middle 100 is ignored.
	assert.Equal(t, FormHot, AssessForm(gamesWithPoints(8, 8, 100, 24, 24)))
}

func TestAssessFormZeroFirstHalf(t *testing.T) {
	// A scoreless early stretch reads as no trend, not a division blowup.
	assert.Equal(t, FormNormal, AssessForm(gamesWithPoints(0, 0, 5, 5)))
}

func TestAssessFormUsesLastFiveGames(t *testing.T) {
	// Big games before the five-game window must not matter. The window is
	// [10,10,30,30,30]: halves [10,10] vs [30,30], a clear upswing, even
	// though the full series trends down.
	games := gamesWithPoints(60, 60, 60, 10, 10, 30, 30, 30)
	assert.Equal(t, FormHot, AssessForm(games))
}

func TestFormModifiers(t *testing.T) {
	assert.Equal(t, 1.15, FormHot.Modifier())
	assert.Equal(t, 1.08, FormWarm.Modifier())
	assert.Equal(t, 1.00, FormNormal.Modifier())
	assert.Equal(t, 0.92, FormCold.Modifier())
	assert.Equal(t, 0.85, FormIceCold.Modifier())

	assert.Equal(t, 1.05, homeModifier(true))
	assert.Equal(t, 0.98, homeModifier(false))
}
