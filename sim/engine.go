package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Trial count bounds. Simulation work is the only throttle in the engine,
// so user-supplied counts are clamped rather than rejected.
const (
	MinTrials = 10
	MaxTrials = 1000
)

func clampTrials(n int) int {
	if n < MinTrials {
		return MinTrials
	}
	if n > MaxTrials {
		return MaxTrials
	}
	return n
}

// SimulateGames runs up to n independent trials and returns the simulated
// box scores. Individual trial failures are dropped, not retried.
func (s *Simulator) SimulateGames(avg SeasonAverages, recent []GameStats, n int, opponent string, isHome bool) ([]GameStats, error) {
	if avg.Zero() {
		return nil, ErrNoSeasonAverages
	}
	if n < 1 {
		n = 1
	}
	if n > MaxTrials {
		n = MaxTrials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]GameStats, 0, n)
	for i := 0; i < n; i++ {
		game, err := s.trial(avg, recent, opponent, isHome)
		if err != nil {
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

// trial runs one simulation, converting any panic inside the composition
// into a per-trial error so a single bad draw never aborts a batch.
func (s *Simulator) trial(avg SeasonAverages, recent []GameStats, opponent string, isHome bool) (game GameStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrTrialFailed
		}
	}()
	return s.simulateGame(avg, recent, opponent, isHome)
}

// ErrTrialFailed marks a single Monte Carlo trial that blew up and was
// excluded from aggregation.
var ErrTrialFailed = trialError("simulation trial failed")

type trialError string

func (e trialError) Error() string { return string(e) }

// SimulateBetOutcome builds an empirical distribution for one prop bet by
// simulating trials games and checking the picked stat against the line.
//
// If every trial fails the summary reports zero valid trials with zeroed
// statistics; it never divides by zero or hides the condition.
func (s *Simulator) SimulateBetOutcome(avg SeasonAverages, recent []GameStats, prop PropType, line float64, pick Pick, trials int, opponent string, isHome bool) (Summary, error) {
	if avg.Zero() {
		return Summary{}, ErrNoSeasonAverages
	}
	if err := ValidateLine(line); err != nil {
		return Summary{}, err
	}
	if pick != PickOver && pick != PickUnder {
		return Summary{}, ErrInvalidPick
	}
	trials = clampTrials(trials)

	s.mu.Lock()
	defer s.mu.Unlock()

	values := make([]float64, 0, trials)
	for i := 0; i < trials; i++ {
		game, err := s.trial(avg, recent, opponent, isHome)
		if err != nil {
			continue
		}
		values = append(values, StatValue(game, prop))
	}

	return summarize(values, line, pick), nil
}

func summarize(values []float64, line float64, pick Pick) Summary {
	n := len(values)
	if n == 0 {
		return Summary{
			Line:       line,
			Pick:       pick,
			TrialsRun:  0,
			Confidence: confidenceLabel(0),
		}
	}

	var over, under, wins int
	for _, v := range values {
		if v > line {
			over++
		}
		if v < line {
			under++
		}
	}
	if pick == PickOver {
		wins = over
	} else {
		wins = under
	}

	winProb := float64(wins) / float64(n)

	return Summary{
		WinProbability:    round3(winProb),
		ExpectedValue:     round2(stat.Mean(values, nil)),
		MedianResult:      round2(median(values)),
		StandardDeviation: round2(popStdDev(values)),
		PercentageOver:    round1(float64(over) / float64(n) * 100),
		PercentageUnder:   round1(float64(under) / float64(n) * 100),
		Line:              line,
		Pick:              pick,
		TrialsRun:         n,
		Confidence:        confidenceLabel(winProb),
	}
}

// confidenceLabel buckets a win probability into a qualitative label.
func confidenceLabel(winProbability float64) string {
	switch {
	case winProbability >= 0.65:
		return "High"
	case winProbability >= 0.55:
		return "Medium"
	case winProbability >= 0.45:
		return "Low"
	}
	return "Very Low"
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// popStdDev is the population standard deviation (divide by n, not n-1),
// matching how the empirical trial distribution is reported.
func popStdDev(values []float64) float64 {
	mean := stat.Mean(values, nil)
	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
