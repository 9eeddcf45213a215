package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/user"
	"path"
	"time"

	"github.com/fanassist/props-server/sim"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dataDir        = ".propsserver"
	dbName         = "props.db"
	jwtKeyHex      = "6f1c9f0b3a6a4de19c1f2b8a07c45233d9e8a1b56cf402781ad3fe92c07b61aa"
	userContextKey = contextKey("user")
)

type contextKey string

type Options struct {
	DataDir     string `short:"d" long:"datadir" description:"Directory to store data"`
	Port        int    `short:"p" long:"port" description:"Port to listen on" default:"8080"`
	DevMode     bool   `long:"dev" description:"Run in dev mode (insecure cookies)"`
	StatsAPIURL string `long:"statsapi" description:"Base URL of the upstream stats provider" default:"https://stats.fanassist.io"`
	LogLevel    string `long:"loglevel" description:"Logging level {debug, info, warn, error}" default:"info"`
	DemoUser    bool   `long:"demouser" description:"Seed a demo account on first run"`
}

type Server struct {
	db               *gorm.DB
	r                chi.Router
	sim              *sim.Simulator
	stats            *StatsClient
	loginRateLimiter *limiter.Limiter
	devMode          bool
	log              *logrus.Logger
}

var jwtKey []byte

func init() {
	var err error
	jwtKey, err = hex.DecodeString(jwtKeyHex)
	if err != nil {
		panic("error parsing jwt key")
	}
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(opts.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	db, err := initDatabase(opts)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}

	// Failed logins are limited per IP and username pair.
	loginRateLimiter := limiter.New(memorystore.NewStore(), limiter.Rate{
		Period: 15 * time.Minute,
		Limit:  10,
	})

	s := &Server{
		db:               db,
		sim:              sim.NewSimulator(),
		stats:            NewStatsClient(opts.StatsAPIURL),
		loginRateLimiter: loginRateLimiter,
		devMode:          opts.DevMode,
		log:              log,
	}
	r := newRouter(s)

	addr := fmt.Sprintf(":%d", opts.Port)
	log.WithField("addr", addr).Info("server listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func newRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth
	r.Post("/api/register", s.POSTRegisterHandler)
	r.Post("/api/login", s.POSTLoginHandler)
	r.Post("/api/logout", s.POSTLogoutHandler)
	r.Get("/api/auth/me", authMiddleware(s.GETAuthMe))
	r.Post("/api/changepw", authMiddleware(s.POSTChangePasswordHandler))

	// Players
	r.Get("/api/players/search", s.GETPlayerSearch)
	r.Get("/api/players/{playerID}/stats", s.GETPlayerStats)
	r.Post("/api/admin/roster/refresh", authMiddleware(s.POSTRefreshRoster))

	// Simulation
	r.Post("/api/simulation/game", s.POSTSimulateGame)
	r.Post("/api/simulation/bet-outcome", s.POSTSimulateBetOutcome)
	r.Post("/api/simulation/parlay", s.POSTSimulateParlay)
	r.Get("/api/simulation/quick-odds/{name}", s.GETQuickOdds)

	// Betting
	r.Post("/api/bets", authMiddleware(s.POSTPlaceBet))
	r.Get("/api/bets", authMiddleware(s.GETBets))
	r.Post("/api/parlays", authMiddleware(s.POSTPlaceParlay))
	r.Get("/api/portfolio", authMiddleware(s.GETPortfolio))
	r.Get("/api/stats", authMiddleware(s.GETBettingStats))
	r.Get("/api/leaderboard", authMiddleware(s.GETLeaderboard))
	r.Post("/api/reset-balance", authMiddleware(s.POSTResetBalance))

	// Config
	r.Get("/api/betting-config", s.GETBettingConfig)
	r.Get("/api/prop-types", s.GETPropTypes)

	s.r = r
	return r
}

// Open the database, migrate the schema, and optionally seed a demo
// account so the API is usable immediately after first start.
func initDatabase(opts Options) (*gorm.DB, error) {
	dataDirPath := opts.DataDir
	if dataDirPath == "" {
		// Get the OS specific home directory via the Go standard lib.
		var homeDir string
		usr, err := user.Current()
		if err == nil {
			homeDir = usr.HomeDir
		}

		// Fall back to standard HOME environment variable that works
		// for most POSIX OSes if the directory from the Go standard
		// lib failed.
		if err != nil || homeDir == "" {
			homeDir = os.Getenv("HOME")
		}
		dataDirPath = path.Join(homeDir, dataDir)
	}

	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path.Join(dataDirPath, dbName)), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Migrate the schema
	err = db.AutoMigrate(&DBUser{}, &DBBet{}, &DBParlay{}, &PlayerIndex{})
	if err != nil {
		return nil, err
	}

	if opts.DemoUser {
		var existing DBUser
		result := db.First(&existing, "username = ?", "demo")
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				hash, err := bcrypt.GenerateFromPassword([]byte("letmein99"), bcrypt.DefaultCost)
				if err != nil {
					return nil, err
				}
				if _, err := createUser(db, "demo", "demo@example.com", string(hash)); err != nil {
					return nil, err
				}
			} else {
				return nil, result.Error
			}
		}
	}

	return db, nil
}

// Validate the JWT token. It can either been in a cookie or a header.
func authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string

		// First try Authorization header
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		} else {
			// Fallback to auth_token cookie
			cookie, err := r.Cookie("auth_token")
			if err != nil {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}
			tokenStr = cookie.Value
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Token is valid, proceed
		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
