package main

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PWChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// DBUser is a paper-betting account. Everyone starts with $10,000 of
// virtual money; the aggregate columns update as bets settle.
type DBUser struct {
	gorm.Model
	Username      string `gorm:"uniqueIndex"`
	Email         string `gorm:"uniqueIndex"`
	PasswordHash  string
	Balance       decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalWinnings decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalLosses   decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalBets     int
	BetsWon       int
	BetsSettled   int
}

// WinRate is wins over settled bets; zero until something settles.
func (u *DBUser) WinRate() float64 {
	if u.BetsSettled == 0 {
		return 0
	}
	return float64(u.BetsWon) / float64(u.BetsSettled)
}

// Bet statuses. Bets here settle immediately against a simulated game, so
// nothing stays pending.
const (
	BetStatusWon     = "won"
	BetStatusLost    = "lost"
	BetStatusPushed  = "pushed"
	BetStatusFlexWon = "flex_won"
)

// DBBet is one settled single-prop wager.
type DBBet struct {
	gorm.Model
	BetID           string          `gorm:"uniqueIndex" json:"betId"`
	UserID          uint            `gorm:"index" json:"-"`
	PlayerID        int             `json:"playerId"`
	PlayerName      string          `json:"playerName"`
	PropType        string          `json:"propType"`
	Line            float64         `json:"line"`
	Pick            string          `json:"pick"`
	BetMode         string          `json:"betMode"`
	PowerMultiplier float64         `json:"powerMultiplier,omitempty"`
	Wager           decimal.Decimal `gorm:"type:decimal(14,2)" json:"wager"`
	Multiplier      float64         `json:"multiplier"`
	Payout          decimal.Decimal `gorm:"type:decimal(14,2)" json:"payout"`
	WinProbability  float64         `json:"winProbability"`
	ActualValue     float64         `json:"actualValue"`
	Status          string          `gorm:"index" json:"status"`
	PlacedAt        time.Time       `json:"placedAt"`
	SettledAt       time.Time       `json:"settledAt"`
}

// DBParlay is one settled multi-leg ticket. Leg details (player, prop,
// line, pick, simulated value, hit) are stored as a JSON document.
type DBParlay struct {
	gorm.Model
	TicketID         string          `gorm:"uniqueIndex" json:"ticketId"`
	UserID           uint            `gorm:"index" json:"-"`
	Legs             datatypes.JSON  `gorm:"type:json" json:"legs"`
	NumLegs          int             `json:"numLegs"`
	LegsHit          int             `json:"legsHit"`
	BetMode          string          `json:"betMode"`
	PowerMultiplier  float64         `json:"powerMultiplier,omitempty"`
	Wager            decimal.Decimal `gorm:"type:decimal(14,2)" json:"wager"`
	Multiplier       float64         `json:"multiplier"`
	Payout           decimal.Decimal `gorm:"type:decimal(14,2)" json:"payout"`
	JointProbability float64         `json:"jointProbability"`
	Status           string          `gorm:"index" json:"status"`
	PlacedAt         time.Time       `json:"placedAt"`
	SettledAt        time.Time       `json:"settledAt"`
}

// PlayerIndex caches the scraped roster so player names resolve to
// upstream ids without hitting the provider on every request.
type PlayerIndex struct {
	gorm.Model
	PlayerID int    `gorm:"uniqueIndex" json:"playerId"`
	Name     string `gorm:"index" json:"name"`
	Team     string `json:"team"`
	TeamAbbr string `json:"teamAbbr"`
	Position string `json:"position"`
}

// Request bodies for the simulation and betting endpoints.

type SimulateGameRequest struct {
	PlayerName     string `json:"playerName"`
	Opponent       string `json:"opponent"`
	IsHome         bool   `json:"isHome"`
	NumSimulations int    `json:"numSimulations"`
}

type BetOutcomeRequest struct {
	PlayerName string  `json:"playerName"`
	PropType   string  `json:"propType"`
	Line       float64 `json:"line"`
	Pick       string  `json:"pick"`
	Trials     int     `json:"trials"`
	Opponent   string  `json:"opponent"`
	IsHome     bool    `json:"isHome"`
}

type ParlayLegRequest struct {
	PlayerName string  `json:"playerName"`
	PropType   string  `json:"propType"`
	Line       float64 `json:"line"`
	Pick       string  `json:"pick"`
}

type ParlayRequest struct {
	Legs            []ParlayLegRequest `json:"legs"`
	Trials          int                `json:"trials"`
	BetMode         string             `json:"betMode"`
	PowerMultiplier float64            `json:"powerMultiplier"`
}

type PlaceBetRequest struct {
	PlayerName      string  `json:"playerName"`
	PropType        string  `json:"propType"`
	Line            float64 `json:"line"`
	Pick            string  `json:"pick"`
	Wager           float64 `json:"wager"`
	BetMode         string  `json:"betMode"`
	PowerMultiplier float64 `json:"powerMultiplier"`
	Opponent        string  `json:"opponent"`
	IsHome          bool    `json:"isHome"`
}

type PlaceParlayRequest struct {
	Legs            []ParlayLegRequest `json:"legs"`
	Wager           float64            `json:"wager"`
	BetMode         string             `json:"betMode"`
	PowerMultiplier float64            `json:"powerMultiplier"`
}

// SettledLeg is the per-leg record stored in a parlay's JSON legs column.
type SettledLeg struct {
	PlayerName     string  `json:"playerName"`
	PropType       string  `json:"propType"`
	Line           float64 `json:"line"`
	Pick           string  `json:"pick"`
	SimulatedValue float64 `json:"simulatedValue"`
	Hit            bool    `json:"hit"`
	WinProbability float64 `json:"winProbability"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Username      string  `json:"username"`
	TotalWinnings float64 `json:"totalWinnings"`
	WinRate       float64 `json:"winRate"`
	TotalBets     int     `json:"totalBets"`
	ROI           float64 `json:"roi"`
}

// BettingStats summarizes one account's history.
type BettingStats struct {
	CurrentBalance   float64 `json:"currentBalance"`
	TotalWagered     float64 `json:"totalWagered"`
	TotalWinnings    float64 `json:"totalWinnings"`
	NetProfit        float64 `json:"netProfit"`
	WinRate          float64 `json:"winRate"`
	AverageBetSize   float64 `json:"averageBetSize"`
	BiggestWin       float64 `json:"biggestWin"`
	BiggestLoss      float64 `json:"biggestLoss"`
	FavoritePropType string  `json:"favoritePropType,omitempty"`
	BestPropType     string  `json:"bestPropType,omitempty"`
}
