package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"socialfeed/internal/app"
	"socialfeed/internal/config"
	"socialfeed/internal/server"
	"socialfeed/internal/store"
	"socialfeed/internal/usertoken"
	"socialfeed/internal/util"
)

const (
	dbConnectAttempts = 5
	dbConnectBackoff  = 2 * time.Second
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	// The listener must not start before the database is reachable.
	dataStore, err := connectStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	tokens, err := usertoken.New(usertoken.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      tokenTTL,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:  dataStore,
		Tokens: tokens,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Tokens:                   tokens,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		AllowedOrigins:           cfg.AllowedOrigins,
	})
	if err != nil {
		log.Fatalf("failed to init http server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// connectStore retries the initial database connection with backoff before
// giving up, so a briefly unavailable database does not kill a fresh deploy.
func connectStore(databaseURL string) (*store.GormStore, error) {
	var (
		dataStore *store.GormStore
		err       error
	)
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		dataStore, err = store.NewGormStore(databaseURL)
		if err == nil {
			return dataStore, nil
		}
		slog.Warn("database connect failed", "attempt", attempt, "err", err)
		if attempt < dbConnectAttempts {
			time.Sleep(time.Duration(attempt) * dbConnectBackoff)
		}
	}
	return nil, err
}
