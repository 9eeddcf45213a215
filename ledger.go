package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fanassist/props-server/sim"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Every account starts with $10,000 of virtual currency. Wagers are
// bounded so a single bet can neither be dust nor wipe the bankroll.
var (
	startingBalance = decimal.NewFromInt(10000)
	minWager        = decimal.NewFromInt(1)
	maxWager        = decimal.NewFromInt(1000)
)

var (
	ErrWagerTooSmall       = errors.New("wager is below the $1 minimum")
	ErrWagerTooLarge       = errors.New("wager is above the $1000 maximum")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

func createUser(db *gorm.DB, username, email, passwordHash string) (*DBUser, error) {
	user := &DBUser{
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		Balance:       startingBalance,
		TotalWinnings: decimal.Zero,
		TotalLosses:   decimal.Zero,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func validateWager(wager decimal.Decimal, balance decimal.Decimal) error {
	if wager.LessThan(minWager) {
		return ErrWagerTooSmall
	}
	if wager.GreaterThan(maxWager) {
		return ErrWagerTooLarge
	}
	if wager.GreaterThan(balance) {
		return ErrInsufficientBalance
	}
	return nil
}

// placeSettledBet prices a single-prop wager off a Monte Carlo run, then
// settles it immediately against one more simulated game. An exact hit on
// the line is a push and refunds the stake.
func (s *Server) placeSettledBet(user *DBUser, req PlaceBetRequest,
	avg sim.SeasonAverages, recent []sim.GameStats) (*DBBet, error) {

	prop, err := sim.ParsePropType(req.PropType)
	if err != nil {
		return nil, err
	}
	pick, err := sim.ParsePick(req.Pick)
	if err != nil {
		return nil, err
	}
	mode, err := sim.ParseBetMode(req.BetMode)
	if err != nil {
		return nil, err
	}
	if err := sim.ValidateLine(req.Line); err != nil {
		return nil, err
	}

	wager := decimal.NewFromFloat(req.Wager).Round(2)
	if err := validateWager(wager, user.Balance); err != nil {
		return nil, err
	}

	summary, err := s.sim.SimulateBetOutcome(avg, recent, prop, req.Line, pick, sim.MaxTrials, req.Opponent, req.IsHome)
	if err != nil {
		return nil, err
	}
	multiplier := sim.PayoutMultiplier(summary.WinProbability, mode, req.PowerMultiplier)

	// One more game is the "real" one the bet settles against.
	game, err := s.sim.SimulateGame(avg, recent, req.Opponent, req.IsHome)
	if err != nil {
		return nil, err
	}
	actual := sim.StatValue(game, prop)

	status := BetStatusLost
	payout := decimal.Zero
	switch {
	case actual == req.Line:
		status = BetStatusPushed
		payout = wager
	case pick == sim.PickOver && actual > req.Line,
		pick == sim.PickUnder && actual < req.Line:
		status = BetStatusWon
		payout = wager.Mul(decimal.NewFromFloat(multiplier)).Round(2)
	}

	now := time.Now()
	bet := &DBBet{
		BetID:           uuid.NewString(),
		UserID:          user.ID,
		PlayerID:        avg.PlayerID,
		PlayerName:      req.PlayerName,
		PropType:        string(prop),
		Line:            req.Line,
		Pick:            string(pick),
		BetMode:         string(mode),
		PowerMultiplier: req.PowerMultiplier,
		Wager:           wager,
		Multiplier:      multiplier,
		Payout:          payout,
		WinProbability:  summary.WinProbability,
		ActualValue:     actual,
		Status:          status,
		PlacedAt:        now,
		SettledAt:       now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var fresh DBUser
		if err := tx.First(&fresh, user.ID).Error; err != nil {
			return err
		}
		if err := validateWager(wager, fresh.Balance); err != nil {
			return err
		}
		applySettlement(&fresh, wager, payout, status)
		if err := tx.Save(&fresh).Error; err != nil {
			return err
		}
		if err := tx.Create(bet).Error; err != nil {
			return err
		}
		*user = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// placeSettledParlay prices a ticket with a joint Monte Carlo run and
// settles each leg against its own simulated game. Standard and power
// tickets need a clean sweep; flex tickets still pay the reduced
// multiplier when exactly one leg misses.
func (s *Server) placeSettledParlay(user *DBUser, req PlaceParlayRequest, legs []sim.BetLeg) (*DBParlay, error) {
	mode, err := sim.ParseBetMode(req.BetMode)
	if err != nil {
		return nil, err
	}
	wager := decimal.NewFromFloat(req.Wager).Round(2)
	if err := validateWager(wager, user.Balance); err != nil {
		return nil, err
	}

	outcome, err := s.sim.SimulateParlay(legs, sim.MaxTrials, mode, req.PowerMultiplier)
	if err != nil {
		return nil, err
	}

	settled := make([]SettledLeg, len(legs))
	hits := 0
	for i, leg := range legs {
		game, err := s.sim.SimulateGame(leg.Averages, leg.RecentGames, leg.Opponent, leg.IsHome)
		if err != nil {
			return nil, fmt.Errorf("leg %d (%s): %w", i+1, leg.Label, err)
		}
		value := sim.StatValue(game, leg.Prop)
		hit := (leg.Pick == sim.PickOver && value > leg.Line) ||
			(leg.Pick == sim.PickUnder && value < leg.Line)
		if hit {
			hits++
		}
		settled[i] = SettledLeg{
			PlayerName:     leg.Label,
			PropType:       string(leg.Prop),
			Line:           leg.Line,
			Pick:           string(leg.Pick),
			SimulatedValue: value,
			Hit:            hit,
			WinProbability: outcome.Legs[i].WinProbability,
		}
	}

	status := BetStatusLost
	payout := decimal.Zero
	multiplier := outcome.Multiplier
	switch {
	case hits == len(legs):
		status = BetStatusWon
		payout = wager.Mul(decimal.NewFromFloat(outcome.Multiplier)).Round(2)
	case mode == sim.ModeFlex && hits == len(legs)-1:
		status = BetStatusFlexWon
		multiplier = outcome.FlexMultiplier
		payout = wager.Mul(decimal.NewFromFloat(outcome.FlexMultiplier)).Round(2)
	}

	legsJSON, err := json.Marshal(settled)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	parlay := &DBParlay{
		TicketID:         uuid.NewString(),
		UserID:           user.ID,
		Legs:             legsJSON,
		NumLegs:          len(legs),
		LegsHit:          hits,
		BetMode:          string(mode),
		PowerMultiplier:  outcome.PowerMultiplier,
		Wager:            wager,
		Multiplier:       multiplier,
		Payout:           payout,
		JointProbability: outcome.JointProbability,
		Status:           status,
		PlacedAt:         now,
		SettledAt:        now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var fresh DBUser
		if err := tx.First(&fresh, user.ID).Error; err != nil {
			return err
		}
		if err := validateWager(wager, fresh.Balance); err != nil {
			return err
		}
		applySettlement(&fresh, wager, payout, status)
		if err := tx.Save(&fresh).Error; err != nil {
			return err
		}
		if err := tx.Create(parlay).Error; err != nil {
			return err
		}
		*user = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parlay, nil
}

// applySettlement moves money and updates the account aggregates for one
// settled wager. Pushes refund the stake and do not count as settled.
func applySettlement(user *DBUser, wager, payout decimal.Decimal, status string) {
	user.Balance = user.Balance.Sub(wager).Add(payout)
	user.TotalBets++

	switch status {
	case BetStatusPushed:
		return
	case BetStatusWon, BetStatusFlexWon:
		user.BetsWon++
		user.TotalWinnings = user.TotalWinnings.Add(payout.Sub(wager))
	default:
		user.TotalLosses = user.TotalLosses.Add(wager)
	}
	user.BetsSettled++
}

// portfolio returns the most recent settled wagers, singles and parlays
// separately, newest first.
func (s *Server) portfolio(userID uint, limit int) ([]DBBet, []DBParlay, error) {
	if limit <= 0 {
		limit = 20
	}
	var bets []DBBet
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&bets).Error; err != nil {
		return nil, nil, err
	}
	var parlays []DBParlay
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&parlays).Error; err != nil {
		return nil, nil, err
	}
	return bets, parlays, nil
}

// bettingStats aggregates one account's full history. Best prop type
// needs at least three bets on the prop before it counts.
func (s *Server) bettingStats(user *DBUser) (*BettingStats, error) {
	var bets []DBBet
	if err := s.db.Where("user_id = ?", user.ID).Find(&bets).Error; err != nil {
		return nil, err
	}
	var parlays []DBParlay
	if err := s.db.Where("user_id = ?", user.ID).Find(&parlays).Error; err != nil {
		return nil, err
	}

	stats := &BettingStats{
		CurrentBalance: user.Balance.InexactFloat64(),
		TotalWinnings:  user.TotalWinnings.InexactFloat64(),
		WinRate:        user.WinRate(),
	}

	wagered := decimal.Zero
	biggestWin := decimal.Zero
	biggestLoss := decimal.Zero
	propCounts := make(map[string]int)
	propWins := make(map[string]int)

	record := func(wager, payout decimal.Decimal) {
		wagered = wagered.Add(wager)
		net := payout.Sub(wager)
		if net.GreaterThan(biggestWin) {
			biggestWin = net
		}
		if net.LessThan(biggestLoss) {
			biggestLoss = net
		}
	}
	for _, b := range bets {
		record(b.Wager, b.Payout)
		propCounts[b.PropType]++
		if b.Status == BetStatusWon {
			propWins[b.PropType]++
		}
	}
	for _, p := range parlays {
		record(p.Wager, p.Payout)
	}

	stats.TotalWagered = wagered.InexactFloat64()
	stats.NetProfit = user.Balance.Sub(startingBalance).InexactFloat64()
	stats.BiggestWin = biggestWin.InexactFloat64()
	stats.BiggestLoss = biggestLoss.Abs().InexactFloat64()
	if n := len(bets) + len(parlays); n > 0 {
		stats.AverageBetSize = wagered.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
	}

	bestRate := -1.0
	favCount := 0
	for prop, count := range propCounts {
		if count > favCount {
			favCount = count
			stats.FavoritePropType = prop
		}
		if count >= 3 {
			rate := float64(propWins[prop]) / float64(count)
			if rate > bestRate {
				bestRate = rate
				stats.BestPropType = prop
			}
		}
	}
	return stats, nil
}

// leaderboard ranks every account that has settled at least one bet.
// Supported sort keys are winnings, win_rate, and roi.
func (s *Server) leaderboard(sortBy string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var users []DBUser
	if err := s.db.Where("bets_settled > 0").Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		roi := u.Balance.Sub(startingBalance).
			Div(startingBalance).Mul(decimal.NewFromInt(100)).
			Round(2).InexactFloat64()
		entries = append(entries, LeaderboardEntry{
			Username:      u.Username,
			TotalWinnings: u.TotalWinnings.InexactFloat64(),
			WinRate:       u.WinRate(),
			TotalBets:     u.TotalBets,
			ROI:           roi,
		})
	}

	switch strings.ToLower(sortBy) {
	case "win_rate":
		sort.Slice(entries, func(i, j int) bool { return entries[i].WinRate > entries[j].WinRate })
	case "roi":
		sort.Slice(entries, func(i, j int) bool { return entries[i].ROI > entries[j].ROI })
	default:
		sort.Slice(entries, func(i, j int) bool { return entries[i].TotalWinnings > entries[j].TotalWinnings })
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// resetBalance restores the starting bankroll and wipes the account's
// wager history.
func (s *Server) resetBalance(user *DBUser) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&DBBet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&DBParlay{}).Error; err != nil {
			return err
		}
		user.Balance = startingBalance
		user.TotalWinnings = decimal.Zero
		user.TotalLosses = decimal.Zero
		user.TotalBets = 0
		user.BetsWon = 0
		user.BetsSettled = 0
		return tx.Save(user).Error
	})
}
