// Package main is the entry point for the challenge tracker server.
//
// MAIN PACKAGE IN GO:
// main stays minimal. Its job is to:
//  1. Load configuration (internal/config)
//  2. Build the logger and open the store and the cache
//  3. Hand everything to internal/server and start it
//
// All actual logic lives in the internal packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/challenge-tracker/internal/cache"
	"github.com/sakif/challenge-tracker/internal/config"
	"github.com/sakif/challenge-tracker/internal/logging"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/repository/postgres"
	"github.com/sakif/challenge-tracker/internal/repository/sqlite"
	"github.com/sakif/challenge-tracker/internal/server"
)

func main() {
	if err := run(); err != nil {
		// The logger may not exist yet, so fall back to stderr.
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION ===
	// defaults → config.yaml → environment (.env included). See internal/config.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. LOGGING ===
	logger, err := logging.New(os.Stdout, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// === 3. STORE ===
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	// === 4. CACHE ===
	// Redis is optional. Without an address every leaderboard read is
	// computed from the store.
	var pageCache server.Cache = cache.Noop{}
	if cfg.Cache.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisCache, err := cache.NewRedis(ctx, cache.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		cancel()
		if err != nil {
			store.Close()
			return err
		}
		pageCache = redisCache
		logger.Info("leaderboard cache enabled", slog.String("redis", cfg.Cache.RedisAddr))
	}

	// === 5. SERVER ===
	srvCfg := server.Config{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		Location:          loc,
		AdminKey:          cfg.Admin.Key,
		JWTSecret:         cfg.Security.JWTSecret,
		SessionTTL:        cfg.Security.SessionTTL,
		SecureCookie:      cfg.Server.SecureCookie,
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
	}
	if cfg.Scheduler.Enabled {
		srvCfg.SchedulerInterval = cfg.Scheduler.Interval
		srvCfg.AutoCreateChallenge = cfg.Scheduler.AutoCreate
	}

	srv, err := server.New(srvCfg, store, pageCache, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM.
	return srv.Start()
}

// openStore opens the configured backend. The sqlite data directory is
// created when missing.
func openStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(cfg.Database.DSN, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
		db, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store ready", slog.String("path", cfg.Database.Path))
		return db, nil
	}
}
