package sim

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Parlay size limits.
const (
	MinParlayLegs = 2
	MaxParlayLegs = 6
	MinFlexLegs   = 3
)

// ValidateParlay rejects malformed tickets before any simulation work:
// leg-count limits for the mode, line increments, pick directions and
// missing upstream data are all configuration errors, not runtime ones.
func ValidateParlay(legs []BetLeg, mode BetMode) error {
	if len(legs) < MinParlayLegs {
		return ErrTooFewLegs
	}
	if len(legs) > MaxParlayLegs {
		return fmt.Errorf("%w: got %d", ErrTooManyLegs, len(legs))
	}
	if mode == ModeFlex && len(legs) < MinFlexLegs {
		return ErrFlexTooFewLegs
	}
	for i, leg := range legs {
		if leg.Averages.Zero() {
			return fmt.Errorf("leg %d (%s): %w", i+1, leg.Label, ErrNoSeasonAverages)
		}
		if err := ValidateLine(leg.Line); err != nil {
			return fmt.Errorf("leg %d (%s): %w", i+1, leg.Label, err)
		}
		if leg.Pick != PickOver && leg.Pick != PickUnder {
			return fmt.Errorf("leg %d (%s): %w", i+1, leg.Label, ErrInvalidPick)
		}
	}
	return nil
}

// SimulateParlay runs correlated trials across every leg of a ticket. On
// each trial one fresh game is simulated per leg (legs are independent
// players, so there is no shared game object), and both per-leg and
// all-legs hit counts are tracked over the same trial set.
//
// Because legs draw independently from the generator, the empirical joint
// probability converges to the product of the marginals as the trial count
// grows; reporting the empirical joint is still the intended behavior.
func (s *Simulator) SimulateParlay(legs []BetLeg, trials int, mode BetMode, powerMultiplier float64) (ParlayOutcome, error) {
	if err := ValidateParlay(legs, mode); err != nil {
		return ParlayOutcome{}, err
	}
	trials = clampTrials(trials)

	s.mu.Lock()
	defer s.mu.Unlock()

	legWins := make([]int, len(legs))
	jointWins := 0

	for i := 0; i < trials; i++ {
		allHit := true
		for j, leg := range legs {
			game, err := s.trial(leg.Averages, leg.RecentGames, leg.Opponent, leg.IsHome)
			if err != nil {
				// A failed trial counts as a miss for this leg.
				allHit = false
				continue
			}
			value := StatValue(game, leg.Prop)

			hit := value > leg.Line
			if leg.Pick == PickUnder {
				hit = value < leg.Line
			}
			if hit {
				legWins[j]++
			} else {
				allHit = false
			}
		}
		if allHit {
			jointWins++
		}
	}

	legResults := make([]LegResult, len(legs))
	legProbs := make([]float64, len(legs))
	for i, leg := range legs {
		p := float64(legWins[i]) / float64(trials)
		legProbs[i] = p
		legResults[i] = LegResult{
			LegNumber:      i + 1,
			Label:          leg.Label,
			Prop:           leg.Prop,
			Line:           leg.Line,
			Pick:           leg.Pick,
			WinProbability: round3(p),
		}
	}

	joint := float64(jointWins) / float64(trials)

	outcome := ParlayOutcome{
		Legs:               legResults,
		JointProbability:   round3(joint),
		StandardMultiplier: PayoutMultiplier(joint, ModeStandard, 1),
		BetMode:            mode,
		TrialsRun:          trials,
	}

	switch mode {
	case ModeFlex:
		flexProb := flexProbability(joint, legProbs)
		outcome.FlexProbability = round3(flexProb)
		outcome.FlexMultiplier = round2(PayoutMultiplier(flexProb, ModeStandard, 1) * 0.7)
		outcome.Multiplier = outcome.StandardMultiplier
	case ModePowerPlay:
		outcome.PowerMultiplier = powerMultiplier
		outcome.Multiplier = PayoutMultiplier(joint, ModePowerPlay, powerMultiplier)
	default:
		outcome.Multiplier = outcome.StandardMultiplier
	}

	return outcome, nil
}

// flexProbability approximates the chance of hitting at least n-1 of n
// legs as joint + (joint/meanLeg) * (1-meanLeg) * n, capped at 0.95.
//
// This is a deliberate heuristic rather than the exact Poisson-binomial
// sum over unequal leg probabilities; it is kept for behavioral parity
// with how flex tickets have always been priced here.
func flexProbability(joint float64, legProbs []float64) float64 {
	meanLeg := stat.Mean(legProbs, nil)
	if meanLeg <= 0 {
		return joint
	}
	flex := joint + (joint/meanLeg)*(1-meanLeg)*float64(len(legProbs))
	if flex > 0.95 {
		flex = 0.95
	}
	return flex
}
