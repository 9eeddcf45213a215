package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Test_UpdatePlayerIndex(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&PlayerIndex{}))

	path := filepath.Join("testdata", "roster.html")
	htmlContent, err := os.ReadFile(path)
	assert.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(htmlContent)
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)
	assert.NoError(t, client.UpdatePlayerIndex(db))

	var players []PlayerIndex
	assert.NoError(t, db.Order("player_id").Find(&players).Error)
	assert.Len(t, players, 3)

	assert.Equal(t, 115, players[0].PlayerID)
	assert.Equal(t, "Stephen Curry", players[0].Name)
	assert.Equal(t, "Golden State Warriors", players[0].Team)
	assert.Equal(t, "GSW", players[0].TeamAbbr)
	assert.Equal(t, "PG", players[0].Position)

	// A second refresh replaces rather than appends.
	assert.NoError(t, client.UpdatePlayerIndex(db))
	assert.NoError(t, db.Find(&players).Error)
	assert.Len(t, players, 3)
}

func Test_LookupPlayer(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&PlayerIndex{}))

	rows := []PlayerIndex{
		{PlayerID: 237, Name: "LeBron James", Team: "Los Angeles Lakers", TeamAbbr: "LAL"},
		{PlayerID: 115, Name: "Stephen Curry", Team: "Golden State Warriors", TeamAbbr: "GSW"},
	}
	assert.NoError(t, db.Create(&rows).Error)

	player, err := LookupPlayer(db, "lebron james")
	assert.NoError(t, err)
	assert.Equal(t, 237, player.PlayerID)

	player, err = LookupPlayer(db, "Curry")
	assert.NoError(t, err)
	assert.Equal(t, 115, player.PlayerID)

	_, err = LookupPlayer(db, "Michael Jordan")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = LookupPlayer(db, "  ")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func Test_SearchPlayers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&PlayerIndex{}))

	rows := []PlayerIndex{
		{PlayerID: 1, Name: "Jaylen Brown"},
		{PlayerID: 2, Name: "Jalen Brunson"},
		{PlayerID: 3, Name: "Nikola Jokic"},
	}
	assert.NoError(t, db.Create(&rows).Error)

	players, err := SearchPlayers(db, "len Br", 20)
	assert.NoError(t, err)
	assert.Len(t, players, 2)
}

func Test_SeasonAverages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/players/237/averages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"playerId": 237, "season": "2025-26", "gamesPlayed": 55,
			"minutesPerGame": 34.5, "pointsPerGame": 25.1,
			"reboundsPerGame": 7.4, "assistsPerGame": 6.1,
			"stealsPerGame": 1.2, "blocksPerGame": 0.7,
			"turnoversPerGame": 3.1,
			"fieldGoalPct": 52.0, "threePointPct": 0.38, "freeThrowPct": 84.0
		}`))
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)
	avg, err := client.SeasonAverages(context.Background(), 237)
	assert.NoError(t, err)

	assert.Equal(t, 237, avg.PlayerID)
	assert.Equal(t, 55, avg.GamesPlayed)
	assert.Equal(t, 25.1, avg.PointsPerGame)

	// Percentages normalize to fractions whether reported 0-1 or 0-100.
	assert.Equal(t, 0.52, avg.FieldGoalPercentage)
	assert.Equal(t, 0.38, avg.ThreePointPercentage)
	assert.Equal(t, 0.84, avg.FreeThrowPercentage)
}

func Test_SeasonAveragesNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"playerId": 999, "gamesPlayed": 0}`))
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)
	_, err := client.SeasonAverages(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNoPlayerData)
}

func Test_SeasonAveragesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such player", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)
	_, err := client.SeasonAverages(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNoPlayerData)
}

func Test_GameLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/players/237/gamelog", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"games": [
			{"gameId": "G1", "date": "2026-02-20", "opponent": "BOS", "home": true,
			 "minutes": 36.2, "points": 28, "rebounds": 8, "assists": 7,
			 "steals": 1, "blocks": 1, "turnovers": 3,
			 "fieldGoalsMade": 10, "fieldGoalsAttempted": 19,
			 "threePointersMade": 2, "threePointersAttempted": 6,
			 "freeThrowsMade": 6, "freeThrowsAttempted": 7},
			{"gameId": "G2", "date": "2026-02-22", "opponent": "MIA", "home": false,
			 "minutes": 33.0, "points": 22, "rebounds": 6, "assists": 9,
			 "steals": 2, "blocks": 0, "turnovers": 4,
			 "fieldGoalsMade": 8, "fieldGoalsAttempted": 17,
			 "threePointersMade": 1, "threePointersAttempted": 4,
			 "freeThrowsMade": 5, "freeThrowsAttempted": 5}
		]}`))
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)
	games, err := client.GameLog(context.Background(), 237, 5)
	assert.NoError(t, err)
	assert.Len(t, games, 2)

	assert.Equal(t, "G1", games[0].GameID)
	assert.Equal(t, 237, games[0].PlayerID)
	assert.Equal(t, "BOS", games[0].Opponent)
	assert.True(t, games[0].IsHome)
	assert.Equal(t, 28, games[0].Points)
	assert.Equal(t, 2026, games[0].GameDate.Year())
	assert.Equal(t, 22, games[1].Points)
}

func Test_NextGame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/players/237/schedule" {
			w.Write([]byte(`{"nextGame": {"opponent": "DEN", "home": false, "date": "2026-03-01"}}`))
			return
		}
		w.Write([]byte(`{"nextGame": null}`))
	}))
	defer server.Close()

	client := NewStatsClient(server.URL)

	opp, home, err := client.NextGame(context.Background(), 237)
	assert.NoError(t, err)
	assert.Equal(t, "DEN", opp)
	assert.False(t, home)

	// No scheduled game is not an error.
	opp, home, err = client.NextGame(context.Background(), 115)
	assert.NoError(t, err)
	assert.Equal(t, "", opp)
	assert.False(t, home)
}
