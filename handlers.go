package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fanassist/props-server/sim"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_\-]{3,32}$`)

func (s *Server) POSTRegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if !usernameRegexp.MatchString(req.Username) {
		http.Error(w, "Username must be 3-32 characters, letters, digits, - or _", http.StatusBadRequest)
		return
	}
	if !strings.Contains(req.Email, "@") {
		http.Error(w, "Invalid email", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not hash password", http.StatusInternalServerError)
		return
	}

	user, err := createUser(s.db, req.Username, req.Email, string(hash))
	if err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Username or email already taken", http.StatusConflict)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := s.issueAuthCookie(w, user.Username); err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"username": user.Username,
		"balance":  user.Balance.InexactFloat64(),
	})
}

func (s *Server) POSTLoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Check if rate limit has been exceeded
	key := loginRateLimitKey(r, creds.Username)
	ctx, err := s.loginRateLimiter.Peek(r.Context(), key)
	if err != nil {
		http.Error(w, "Rate limiter error", http.StatusInternalServerError)
		return
	}
	if ctx.Reached {
		http.Error(w, "Too many failed login attempts", http.StatusTooManyRequests)
		return
	}

	user := &DBUser{}
	result := s.db.First(user, "username = ?", creds.Username)
	if result.Error != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password))
	if err != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.issueAuthCookie(w, user.Username); err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"username": user.Username,
		"balance":  user.Balance.InexactFloat64(),
	})
}

func (s *Server) issueAuthCookie(w http.ResponseWriter, username string) error {
	expiration := time.Now().Add(60 * time.Minute)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(jwtKey)
	if err != nil {
		return err
	}

	// Set HTTP-only JWT cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenStr,
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
	})
	return nil
}

func loginRateLimitKey(r *http.Request, username string) string {
	ip := r.RemoteAddr
	return fmt.Sprintf("%s:%s", ip, username)
}

func (s *Server) POSTLogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Unix(0, 0), // Expire immediately
		MaxAge:   -1,              // Force deletion
	})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) GETAuthMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"username":      user.Username,
		"balance":       user.Balance.InexactFloat64(),
		"totalBets":     user.TotalBets,
		"winRate":       user.WinRate(),
	})
}

func (s *Server) POSTChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var pwChangeReq PWChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&pwChangeReq); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pwChangeReq.CurrentPassword))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if len(pwChangeReq.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwChangeReq.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not hash password", http.StatusInternalServerError)
		return
	}
	user.PasswordHash = string(hash)
	if err := s.db.Save(user).Error; err != nil {
		http.Error(w, "Could not save password", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// currentUser loads the account for the authenticated request.
func (s *Server) currentUser(r *http.Request) (*DBUser, error) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("no claims in context")
	}
	user := &DBUser{}
	if err := s.db.First(user, "username = ?", claims.Username).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Server) GETPlayerSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	if strings.TrimSpace(query) == "" {
		http.Error(w, "Missing name query parameter", http.StatusBadRequest)
		return
	}

	players, err := SearchPlayers(s.db, query, 20)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(players)
}

func (s *Server) GETPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		http.Error(w, "Invalid player id", http.StatusBadRequest)
		return
	}

	avg, err := s.stats.SeasonAverages(r.Context(), playerID)
	if err != nil {
		s.statsError(w, err)
		return
	}
	games, err := s.stats.GameLog(r.Context(), playerID, 10)
	if err != nil {
		s.statsError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"averages":    avg,
		"recentGames": games,
		"currentForm": sim.AssessForm(games),
	})
}

func (s *Server) POSTRefreshRoster(w http.ResponseWriter, r *http.Request) {
	if err := s.stats.UpdatePlayerIndex(s.db); err != nil {
		s.log.WithError(err).Error("roster refresh failed")
		http.Error(w, "Roster refresh failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// playerData resolves a name to the cached index entry plus fresh
// averages and recent games from the provider.
func (s *Server) playerData(r *http.Request, name string) (*PlayerIndex, sim.SeasonAverages, []sim.GameStats, error) {
	player, err := LookupPlayer(s.db, name)
	if err != nil {
		return nil, sim.SeasonAverages{}, nil, err
	}
	avg, err := s.stats.SeasonAverages(r.Context(), player.PlayerID)
	if err != nil {
		return nil, sim.SeasonAverages{}, nil, err
	}
	games, err := s.stats.GameLog(r.Context(), player.PlayerID, 10)
	if err != nil {
		return nil, sim.SeasonAverages{}, nil, err
	}
	return player, avg, games, nil
}

func (s *Server) POSTSimulateGame(w http.ResponseWriter, r *http.Request) {
	var req SimulateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	player, avg, games, err := s.playerData(r, req.PlayerName)
	if err != nil {
		s.statsError(w, err)
		return
	}

	n := req.NumSimulations
	if n <= 0 {
		n = 1
	}
	simulated, err := s.sim.SimulateGames(avg, games, n, req.Opponent, req.IsHome)
	if err != nil {
		s.simError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"player":      player.Name,
		"currentForm": sim.AssessForm(games),
		"games":       simulated,
	})
}

func (s *Server) POSTSimulateBetOutcome(w http.ResponseWriter, r *http.Request) {
	var req BetOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	prop, err := sim.ParsePropType(req.PropType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pick, err := sim.ParsePick(req.Pick)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	player, avg, games, err := s.playerData(r, req.PlayerName)
	if err != nil {
		s.statsError(w, err)
		return
	}

	summary, err := s.sim.SimulateBetOutcome(avg, games, prop, req.Line, pick, req.Trials, req.Opponent, req.IsHome)
	if err != nil {
		s.simError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"player":     player.Name,
		"propType":   prop,
		"summary":    summary,
		"multiplier": sim.PayoutMultiplier(summary.WinProbability, sim.ModeStandard, 1),
		"moneyline":  sim.ProbToMoneyline(summary.WinProbability),
	})
}

func (s *Server) POSTSimulateParlay(w http.ResponseWriter, r *http.Request) {
	var req ParlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	mode, err := sim.ParseBetMode(req.BetMode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	legs, err := s.buildLegs(r, req.Legs)
	if err != nil {
		s.statsError(w, err)
		return
	}

	outcome, err := s.sim.SimulateParlay(legs, req.Trials, mode, req.PowerMultiplier)
	if err != nil {
		s.simError(w, err)
		return
	}
	json.NewEncoder(w).Encode(outcome)
}

func (s *Server) buildLegs(r *http.Request, reqs []ParlayLegRequest) ([]sim.BetLeg, error) {
	legs := make([]sim.BetLeg, 0, len(reqs))
	for i, lr := range reqs {
		prop, err := sim.ParsePropType(lr.PropType)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		pick, err := sim.ParsePick(lr.Pick)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		player, avg, games, err := s.playerData(r, lr.PlayerName)
		if err != nil {
			return nil, err
		}
		legs = append(legs, sim.BetLeg{
			Label:       player.Name,
			Averages:    avg,
			RecentGames: games,
			Prop:        prop,
			Line:        lr.Line,
			Pick:        pick,
		})
	}
	return legs, nil
}

// GETQuickOdds prices OVER bets at lines set just off the player's
// season averages for the three headline props.
func (s *Server) GETQuickOdds(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	player, avg, games, err := s.playerData(r, name)
	if err != nil {
		s.statsError(w, err)
		return
	}

	headline := []struct {
		prop sim.PropType
		avg  float64
	}{
		{sim.PropPoints, avg.PointsPerGame},
		{sim.PropRebounds, avg.ReboundsPerGame},
		{sim.PropAssists, avg.AssistsPerGame},
	}

	quotes := make([]map[string]any, 0, len(headline))
	for _, h := range headline {
		line := roundToHalf(h.avg)
		summary, err := s.sim.SimulateBetOutcome(avg, games, h.prop, line, sim.PickOver, 300, "", true)
		if err != nil {
			s.simError(w, err)
			return
		}
		quotes = append(quotes, map[string]any{
			"propType":       h.prop,
			"line":           line,
			"winProbability": summary.WinProbability,
			"multiplier":     sim.PayoutMultiplier(summary.WinProbability, sim.ModeStandard, 1),
			"confidence":     summary.Confidence,
		})
	}

	json.NewEncoder(w).Encode(map[string]any{
		"player": player.Name,
		"quotes": quotes,
	})
}

// roundToHalf snaps a value to the nearest 0.5 so it is a valid line.
func roundToHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

func (s *Server) POSTPlaceBet(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	player, avg, games, err := s.playerData(r, req.PlayerName)
	if err != nil {
		s.statsError(w, err)
		return
	}
	req.PlayerName = player.Name

	if req.Opponent == "" {
		// Best effort; an empty opponent simulates a neutral matchup.
		if opp, home, err := s.stats.NextGame(r.Context(), player.PlayerID); err == nil && opp != "" {
			req.Opponent = opp
			req.IsHome = home
		}
	}

	bet, err := s.placeSettledBet(user, req, avg, games)
	if err != nil {
		s.betError(w, err)
		return
	}

	s.log.WithField("user", user.Username).
		WithField("bet", bet.BetID).
		WithField("status", bet.Status).
		Info("bet settled")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"bet":     bet,
		"balance": user.Balance.InexactFloat64(),
	})
}

func (s *Server) POSTPlaceParlay(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req PlaceParlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	legs, err := s.buildLegs(r, req.Legs)
	if err != nil {
		s.statsError(w, err)
		return
	}

	parlay, err := s.placeSettledParlay(user, req, legs)
	if err != nil {
		s.betError(w, err)
		return
	}

	s.log.WithField("user", user.Username).
		WithField("ticket", parlay.TicketID).
		WithField("status", parlay.Status).
		Info("parlay settled")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"parlay":  parlay,
		"balance": user.Balance.InexactFloat64(),
	})
}

func (s *Server) GETBets(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.Where("user_id = ?", user.ID)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bets []DBBet
	if err := query.Order("created_at DESC").Limit(limit).Find(&bets).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(bets)
}

func (s *Server) GETPortfolio(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bets, parlays, err := s.portfolio(user.ID, 20)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"balance": user.Balance.InexactFloat64(),
		"bets":    bets,
		"parlays": parlays,
	})
}

func (s *Server) GETBettingStats(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := s.bettingStats(user)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) GETLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.leaderboard(r.URL.Query().Get("sort"), limit)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) POSTResetBalance(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.resetBalance(user); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"balance": user.Balance.InexactFloat64(),
	})
}

func (s *Server) GETBettingConfig(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"startingBalance":  startingBalance.InexactFloat64(),
		"minWager":         minWager.InexactFloat64(),
		"maxWager":         maxWager.InexactFloat64(),
		"minParlayLegs":    sim.MinParlayLegs,
		"maxParlayLegs":    sim.MaxParlayLegs,
		"minFlexLegs":      sim.MinFlexLegs,
		"betModes":         []sim.BetMode{sim.ModeStandard, sim.ModeFlex, sim.ModePowerPlay},
		"powerMultipliers": []float64{2, 3, 5, 10},
	})
}

func (s *Server) GETPropTypes(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(sim.AllPropTypes())
}

// statsError maps player resolution and provider failures onto HTTP
// status codes. Missing data is a 404, not a 500.
func (s *Server) statsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPlayerNotFound), errors.Is(err, ErrNoPlayerData):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sim.ErrUnknownPropType), errors.Is(err, sim.ErrInvalidPick),
		errors.Is(err, sim.ErrInvalidLine):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, gorm.ErrRecordNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		s.log.WithError(err).Error("stats provider error")
		http.Error(w, "Stats provider error", http.StatusBadGateway)
	}
}

func (s *Server) simError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrNoSeasonAverages):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sim.ErrInvalidLine), errors.Is(err, sim.ErrInvalidPick),
		errors.Is(err, sim.ErrInvalidBetMode), errors.Is(err, sim.ErrUnknownPropType),
		errors.Is(err, sim.ErrTooFewLegs), errors.Is(err, sim.ErrTooManyLegs),
		errors.Is(err, sim.ErrFlexTooFewLegs):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.WithError(err).Error("simulation error")
		http.Error(w, "Simulation error", http.StatusInternalServerError)
	}
}

func (s *Server) betError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWagerTooSmall), errors.Is(err, ErrWagerTooLarge),
		errors.Is(err, ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.simError(w, err)
	}
}
