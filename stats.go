package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fanassist/props-server/sim"
	"github.com/gocolly/colly"
	"gorm.io/gorm"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoPlayerData   = errors.New("no data available for player")
)

const statsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/115.0.0.0 Safari/537.36"

// StatsClient talks to the upstream stats provider. The roster index is
// scraped from HTML; per-player averages, game logs, and schedules come
// from the provider's JSON endpoints.
type StatsClient struct {
	baseURL string
	client  *http.Client
}

func NewStatsClient(baseURL string) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// UpdatePlayerIndex scrapes the provider's roster page and replaces the
// cached player index in one transaction.
func (c *StatsClient) UpdatePlayerIndex(db *gorm.DB) error {
	col := colly.NewCollector(
		colly.UserAgent(statsUserAgent),
	)
	col.Async = true

	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
	})

	rows := make([]PlayerIndex, 0, 500)
	col.OnHTML("table.players-index tbody > tr", func(e *colly.HTMLElement) {
		tds := e.DOM.ChildrenFiltered("td")
		if tds.Length() < 4 {
			return
		}

		id, err := strconv.Atoi(strings.TrimSpace(e.Attr("data-player-id")))
		if err != nil {
			return
		}
		rows = append(rows, PlayerIndex{
			PlayerID: id,
			Name:     playerCellName(tds.Eq(0)),
			Team:     strings.TrimSpace(tds.Eq(1).Text()),
			TeamAbbr: strings.TrimSpace(tds.Eq(2).Text()),
			Position: strings.TrimSpace(tds.Eq(3).Text()),
		})
	})

	if err := col.Visit(c.baseURL + "/players"); err != nil {
		return err
	}
	col.Wait()

	if len(rows) == 0 {
		return fmt.Errorf("no players parsed from %s/players", c.baseURL)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("1 = 1").Delete(&PlayerIndex{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
}

// playerCellName pulls the display name out of a roster cell, with or
// without the profile link wrapper.
func playerCellName(cell *goquery.Selection) string {
	if name := strings.TrimSpace(cell.Find("a").Text()); name != "" {
		return name
	}
	return strings.TrimSpace(cell.Text())
}

// LookupPlayer resolves a (possibly partial) name against the cached
// index. Exact matches win over substring matches.
func LookupPlayer(db *gorm.DB, name string) (*PlayerIndex, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNotFound
	}

	var player PlayerIndex
	err := db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&player).Error
	if err == nil {
		return &player, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("name LIKE ?", "%"+name+"%").Order("name").First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// SearchPlayers returns index rows whose names contain the query.
func SearchPlayers(db *gorm.DB, query string, limit int) ([]PlayerIndex, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var players []PlayerIndex
	err := db.Where("name LIKE ?", "%"+strings.TrimSpace(query)+"%").
		Order("name").Limit(limit).Find(&players).Error
	return players, err
}

type averagesResponse struct {
	PlayerID int     `json:"playerId"`
	Season   string  `json:"season"`
	Games    int     `json:"gamesPlayed"`
	MPG      float64 `json:"minutesPerGame"`
	PPG      float64 `json:"pointsPerGame"`
	RPG      float64 `json:"reboundsPerGame"`
	APG      float64 `json:"assistsPerGame"`
	SPG      float64 `json:"stealsPerGame"`
	BPG      float64 `json:"blocksPerGame"`
	TPG      float64 `json:"turnoversPerGame"`
	FGPct    float64 `json:"fieldGoalPct"`
	ThreePct float64 `json:"threePointPct"`
	FTPct    float64 `json:"freeThrowPct"`
}

type gameLogResponse struct {
	Games []struct {
		GameID    string  `json:"gameId"`
		Date      string  `json:"date"`
		Opponent  string  `json:"opponent"`
		Home      bool    `json:"home"`
		Minutes   float64 `json:"minutes"`
		Points    int     `json:"points"`
		Rebounds  int     `json:"rebounds"`
		Assists   int     `json:"assists"`
		Steals    int     `json:"steals"`
		Blocks    int     `json:"blocks"`
		Turnovers int     `json:"turnovers"`
		FGM       int     `json:"fieldGoalsMade"`
		FGA       int     `json:"fieldGoalsAttempted"`
		TPM       int     `json:"threePointersMade"`
		TPA       int     `json:"threePointersAttempted"`
		FTM       int     `json:"freeThrowsMade"`
		FTA       int     `json:"freeThrowsAttempted"`
	} `json:"games"`
}

type scheduleResponse struct {
	NextGame *struct {
		Opponent string `json:"opponent"`
		Home     bool   `json:"home"`
		Date     string `json:"date"`
	} `json:"nextGame"`
}

// SeasonAverages fetches a player's current-season per-game averages.
func (c *StatsClient) SeasonAverages(ctx context.Context, playerID int) (sim.SeasonAverages, error) {
	var resp averagesResponse
	url := fmt.Sprintf("%s/api/players/%d/averages", c.baseURL, playerID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return sim.SeasonAverages{}, err
	}
	if resp.Games == 0 {
		return sim.SeasonAverages{}, ErrNoPlayerData
	}
	return sim.SeasonAverages{
		PlayerID:             playerID,
		Season:               resp.Season,
		GamesPlayed:          resp.Games,
		MinutesPerGame:       resp.MPG,
		PointsPerGame:        resp.PPG,
		ReboundsPerGame:      resp.RPG,
		AssistsPerGame:       resp.APG,
		StealsPerGame:        resp.SPG,
		BlocksPerGame:        resp.BPG,
		TurnoversPerGame:     resp.TPG,
		FieldGoalPercentage:  asFraction(resp.FGPct),
		ThreePointPercentage: asFraction(resp.ThreePct),
		FreeThrowPercentage:  asFraction(resp.FTPct),
	}, nil
}

// GameLog fetches a player's most recent games, oldest first.
func (c *StatsClient) GameLog(ctx context.Context, playerID, limit int) ([]sim.GameStats, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	var resp gameLogResponse
	url := fmt.Sprintf("%s/api/players/%d/gamelog?limit=%d", c.baseURL, playerID, limit)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	games := make([]sim.GameStats, 0, len(resp.Games))
	for _, g := range resp.Games {
		date, _ := time.Parse("2006-01-02", g.Date)
		games = append(games, sim.GameStats{
			GameID:                 g.GameID,
			PlayerID:               playerID,
			GameDate:               date,
			Opponent:               g.Opponent,
			IsHome:                 g.Home,
			MinutesPlayed:          g.Minutes,
			Points:                 g.Points,
			Rebounds:               g.Rebounds,
			Assists:                g.Assists,
			Steals:                 g.Steals,
			Blocks:                 g.Blocks,
			Turnovers:              g.Turnovers,
			FieldGoalsMade:         g.FGM,
			FieldGoalsAttempted:    g.FGA,
			ThreePointersMade:      g.TPM,
			ThreePointersAttempted: g.TPA,
			FreeThrowsMade:         g.FTM,
			FreeThrowsAttempted:    g.FTA,
		})
	}
	return games, nil
}

// NextGame returns the opponent abbreviation and home flag for a
// player's next scheduled game. No scheduled game is not an error; the
// simulator falls back to a neutral matchup.
func (c *StatsClient) NextGame(ctx context.Context, playerID int) (opponent string, isHome bool, err error) {
	var resp scheduleResponse
	url := fmt.Sprintf("%s/api/players/%d/schedule", c.baseURL, playerID)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return "", false, err
	}
	if resp.NextGame == nil {
		return "", false, nil
	}
	return resp.NextGame.Opponent, resp.NextGame.Home, nil
}

func (c *StatsClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", statsUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoPlayerData
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("stats provider returned %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// asFraction normalizes percentages the provider reports as 0-100.
func asFraction(pct float64) float64 {
	if pct > 1 {
		return pct / 100
	}
	return pct
}
