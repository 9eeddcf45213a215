package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// PropType identifies which statistic a prop bet is written against.
type PropType string

const (
	PropPoints         PropType = "points"
	PropRebounds       PropType = "rebounds"
	PropAssists        PropType = "assists"
	PropSteals         PropType = "steals"
	PropBlocks         PropType = "blocks"
	PropTurnovers      PropType = "turnovers"
	PropThreesMade     PropType = "threes_made"
	PropFreeThrowsMade PropType = "free_throws_made"
	PropFantasyScore   PropType = "fantasy_score"

	// Combo props sum multiple box score columns.
	PropPointsReboundsAssists PropType = "pra"
	PropPointsRebounds        PropType = "pr"
	PropPointsAssists         PropType = "pa"
)

// AllPropTypes lists every supported prop in display order.
func AllPropTypes() []PropType {
	return []PropType{
		PropPoints, PropRebounds, PropAssists, PropSteals, PropBlocks,
		PropTurnovers, PropThreesMade, PropFreeThrowsMade, PropFantasyScore,
		PropPointsReboundsAssists, PropPointsRebounds, PropPointsAssists,
	}
}

// ParsePropType normalizes user input into a known PropType.
func ParsePropType(s string) (PropType, error) {
	switch PropType(strings.ToLower(strings.TrimSpace(s))) {
	case PropPoints:
		return PropPoints, nil
	case PropRebounds:
		return PropRebounds, nil
	case PropAssists:
		return PropAssists, nil
	case PropSteals:
		return PropSteals, nil
	case PropBlocks:
		return PropBlocks, nil
	case PropTurnovers:
		return PropTurnovers, nil
	case PropThreesMade, "threes":
		return PropThreesMade, nil
	case PropFreeThrowsMade:
		return PropFreeThrowsMade, nil
	case PropFantasyScore:
		return PropFantasyScore, nil
	case PropPointsReboundsAssists:
		return PropPointsReboundsAssists, nil
	case PropPointsRebounds:
		return PropPointsRebounds, nil
	case PropPointsAssists:
		return PropPointsAssists, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPropType, s)
}

// Pick is the direction of a prop bet.
type Pick string

const (
	PickOver  Pick = "OVER"
	PickUnder Pick = "UNDER"
)

func ParsePick(s string) (Pick, error) {
	switch Pick(strings.ToUpper(strings.TrimSpace(s))) {
	case PickOver:
		return PickOver, nil
	case PickUnder:
		return PickUnder, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPick, s)
}

// BetMode selects the parlay payout scheme.
type BetMode string

const (
	ModeStandard  BetMode = "standard"
	ModeFlex      BetMode = "flex"
	ModePowerPlay BetMode = "power_play"
)

func ParseBetMode(s string) (BetMode, error) {
	switch BetMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStandard, "":
		return ModeStandard, nil
	case ModeFlex:
		return ModeFlex, nil
	case ModePowerPlay:
		return ModePowerPlay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBetMode, s)
}

var (
	ErrNoSeasonAverages = errors.New("player season averages unavailable")
	ErrUnknownPropType  = errors.New("unknown prop type")
	ErrInvalidPick      = errors.New("pick must be OVER or UNDER")
	ErrInvalidBetMode   = errors.New("invalid bet mode")
	ErrInvalidLine      = errors.New("line must be a whole number or .5 increment")
	ErrTooFewLegs       = errors.New("parlay requires at least 2 legs")
	ErrTooManyLegs      = errors.New("parlay cannot have more than 6 legs")
	ErrFlexTooFewLegs   = errors.New("flex picks require at least 3 legs")
)

// SeasonAverages is a read-only snapshot of a player's per-game rate stats
// for one season, as reported by the upstream stats provider.
type SeasonAverages struct {
	PlayerID             int     `json:"playerId"`
	Season               string  `json:"season"`
	GamesPlayed          int     `json:"gamesPlayed"`
	MinutesPerGame       float64 `json:"minutesPerGame"`
	PointsPerGame        float64 `json:"pointsPerGame"`
	ReboundsPerGame      float64 `json:"reboundsPerGame"`
	AssistsPerGame       float64 `json:"assistsPerGame"`
	StealsPerGame        float64 `json:"stealsPerGame"`
	BlocksPerGame        float64 `json:"blocksPerGame"`
	TurnoversPerGame     float64 `json:"turnoversPerGame"`
	FieldGoalPercentage  float64 `json:"fieldGoalPercentage"`
	ThreePointPercentage float64 `json:"threePointPercentage"`
	FreeThrowPercentage  float64 `json:"freeThrowPercentage"`
}

// Zero reports whether the snapshot carries no usable data. A player who
// has not appeared this season produces an all-zero record upstream.
func (a SeasonAverages) Zero() bool {
	return a.GamesPlayed == 0 && a.MinutesPerGame == 0 && a.PointsPerGame == 0
}

// GameStats is one game's box score. Log entries only include games the
// player actually appeared in; the provider drops DNPs before they reach
// the simulator.
type GameStats struct {
	GameID                 string    `json:"gameId"`
	PlayerID               int       `json:"playerId"`
	GameDate               time.Time `json:"gameDate"`
	Opponent               string    `json:"opponent"`
	IsHome                 bool      `json:"isHome"`
	MinutesPlayed          float64   `json:"minutesPlayed"`
	Points                 int       `json:"points"`
	Rebounds               int       `json:"rebounds"`
	Assists                int       `json:"assists"`
	Steals                 int       `json:"steals"`
	Blocks                 int       `json:"blocks"`
	Turnovers              int       `json:"turnovers"`
	FieldGoalsMade         int       `json:"fieldGoalsMade"`
	FieldGoalsAttempted    int       `json:"fieldGoalsAttempted"`
	ThreePointersMade      int       `json:"threePointersMade"`
	ThreePointersAttempted int       `json:"threePointersAttempted"`
	FreeThrowsMade         int       `json:"freeThrowsMade"`
	FreeThrowsAttempted    int       `json:"freeThrowsAttempted"`
	PlusMinus              int       `json:"plusMinus"`
	FantasyScore           float64   `json:"fantasyScore"`
}

// FantasyScore computes the PrizePicks-style weighted composite:
// 1pt=1, 1reb=1.2, 1ast=1.5, 1stl=3, 1blk=3, 1to=-1, rounded to one decimal.
func FantasyScore(g GameStats) float64 {
	score := float64(g.Points)*1.0 +
		float64(g.Rebounds)*1.2 +
		float64(g.Assists)*1.5 +
		float64(g.Steals)*3.0 +
		float64(g.Blocks)*3.0 -
		float64(g.Turnovers)*1.0
	return math.Round(score*10) / 10
}

// StatValue extracts the value a prop of the given type settles against.
func StatValue(g GameStats, prop PropType) float64 {
	switch prop {
	case PropPoints:
		return float64(g.Points)
	case PropRebounds:
		return float64(g.Rebounds)
	case PropAssists:
		return float64(g.Assists)
	case PropSteals:
		return float64(g.Steals)
	case PropBlocks:
		return float64(g.Blocks)
	case PropTurnovers:
		return float64(g.Turnovers)
	case PropThreesMade:
		return float64(g.ThreePointersMade)
	case PropFreeThrowsMade:
		return float64(g.FreeThrowsMade)
	case PropFantasyScore:
		return g.FantasyScore
	case PropPointsReboundsAssists:
		return float64(g.Points + g.Rebounds + g.Assists)
	case PropPointsRebounds:
		return float64(g.Points + g.Rebounds)
	case PropPointsAssists:
		return float64(g.Points + g.Assists)
	}
	return 0
}

// ValidateLine enforces sportsbook line increments: whole or half numbers.
func ValidateLine(line float64) error {
	if line < 0 {
		return ErrInvalidLine
	}
	frac := line - math.Trunc(line)
	if frac != 0 && frac != 0.5 {
		return fmt.Errorf("%w, got %v", ErrInvalidLine, line)
	}
	return nil
}

// BetLeg is one player/prop selection together with the upstream data the
// simulator needs to evaluate it.
type BetLeg struct {
	Label       string // display name, usually the player's full name
	Averages    SeasonAverages
	RecentGames []GameStats
	Prop        PropType
	Line        float64
	Pick        Pick
	Opponent    string
	IsHome      bool
}

// Summary aggregates one prop bet's empirical trial distribution.
type Summary struct {
	WinProbability    float64 `json:"winProbability"`
	ExpectedValue     float64 `json:"expectedValue"`
	MedianResult      float64 `json:"medianResult"`
	StandardDeviation float64 `json:"standardDeviation"`
	PercentageOver    float64 `json:"percentageOver"`
	PercentageUnder   float64 `json:"percentageUnder"`
	Line              float64 `json:"line"`
	Pick              Pick    `json:"pick"`
	TrialsRun         int     `json:"trialsRun"`
	Confidence        string  `json:"confidenceLevel"`
}

// LegResult is one parlay leg's marginal outcome over the trial set.
type LegResult struct {
	LegNumber      int      `json:"legNumber"`
	Label          string   `json:"label"`
	Prop           PropType `json:"prop"`
	Line           float64  `json:"line"`
	Pick           Pick     `json:"pick"`
	WinProbability float64  `json:"winProbability"`
}

// ParlayOutcome is the full result of a multi-leg simulation: per-leg
// marginals, the empirical joint probability and the priced multipliers
// for the chosen bet mode.
type ParlayOutcome struct {
	Legs               []LegResult `json:"legs"`
	JointProbability   float64     `json:"jointProbability"`
	FlexProbability    float64     `json:"flexProbability,omitempty"`
	StandardMultiplier float64     `json:"standardMultiplier"`
	FlexMultiplier     float64     `json:"flexMultiplier,omitempty"`
	Multiplier         float64     `json:"multiplier"`
	BetMode            BetMode     `json:"betMode"`
	PowerMultiplier    float64     `json:"powerMultiplier,omitempty"`
	TrialsRun          int         `json:"trialsRun"`
}
