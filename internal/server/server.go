// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects the store, the cache, the
// services, the handlers and the background jobs, and decides:
//   - which URL maps to which handler
//   - which middleware runs on which routes
//   - how the server starts and stops
//
// COMPOSITION ROOT:
// main.go opens the store and the cache (they depend on configuration and
// may fail); New builds everything above them:
//
//	repository.Store ─┬─> leaderboard.Service ─> LeaderboardHandler
//	                  ├─> SubmissionService   ─> SubmissionHandler
//	                  ├─> ChallengeService    ─> ChallengeHandler, scheduler
//	                  └─> AccountService      ─> AccountHandler
//
// Each layer only receives what it needs. Handlers never touch the store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/handler"
	"github.com/sakif/challenge-tracker/internal/leaderboard"
	"github.com/sakif/challenge-tracker/internal/middleware"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/scheduler"
	"github.com/sakif/challenge-tracker/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Config holds server configuration. main.go fills it from config.Config.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Location     *time.Location // decides the submission day

	AdminKey     string
	JWTSecret    string
	SessionTTL   time.Duration
	SecureCookie bool
	BcryptCost   int // 0 means the production cost

	CORSOrigins       []string
	RateLimitRequests int // per IP per RateLimitWindow on write routes; 0 disables
	RateLimitWindow   time.Duration

	SchedulerInterval   time.Duration // 0 disables background jobs
	AutoCreateChallenge bool
}

// Cache is the leaderboard cache plus what the server needs to probe and
// release it.
type Cache interface {
	leaderboard.Cache
	Ping(ctx context.Context) error
	Close() error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store, the cache and the scheduler. Close releases all
// three; Start calls it on the way out.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger

	store repository.Store
	cache Cache
	jobs  *scheduler.Scheduler // nil when background jobs are disabled
}

// New builds the services, handlers and routes on top of store and cache.
//
// New takes ownership of store and cache: it closes them when it fails.
func New(cfg Config, store repository.Store, cache Cache, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		cache:  cache,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes creates the dependency chain and mounts every route.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz               → liveness + store/cache probes
//	GET  /metrics               → Prometheus exposition
//	GET  /leaderboard           → standings of a challenge
//	GET  /challenges            → every challenge, newest first
//	GET  /challenges/browse     → month-by-month cursor
//	GET  /me                    → logged-in user            [session cookie]
//	GET  /admin/leaderboard     → standings with unique codes [admin key]
//	GET  /users                 → user list                  [admin key]
//	POST /task-submission       → daily metrics             [rate limited]
//	POST /register              → new participant           [rate limited]
//	POST /login                 → session cookie            [rate limited]
//	POST /get-unique-code       → recover unique code       [rate limited]
//	POST /logout                → clear session cookie
//	POST /create-challenge      → open this month           [admin key, rate limited]
//	POST /turn-off-submission   → close a challenge         [admin key, rate limited]
//	POST /change-password       → reset a password          [admin key, rate limited]
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID  → tags the request for the log line
//  2. RealIP     → client IP from proxy headers (the rate limiter keys on it)
//  3. Recoverer  → a panic becomes a 500 instead of a crash
//  4. Logger     → one structured line per request
//  5. Metrics    → Prometheus counters by route pattern
//  6. CORS       → browser clients on other origins
func (s *Server) setupRoutes() error {
	cfg := s.config
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	// === Services ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()
	if cfg.BcryptCost > 0 {
		passwords = auth.NewPasswordServiceForTest(cfg.BcryptCost)
	}
	admin := auth.NewAdminGate(cfg.AdminKey)
	if cfg.AdminKey == "" {
		s.logger.Warn("admin.key is not set; every admin operation will be refused")
	}

	board := leaderboard.NewService(s.store, s.store, s.cache, s.logger)
	submissions := service.NewSubmissionService(s.store, s.store, board, loc, s.logger)
	challenges := service.NewChallengeService(s.store, admin, loc, s.logger)
	accounts := service.NewAccountService(s.store, tokens, passwords, admin, s.logger)

	// === Background jobs ===
	if cfg.SchedulerInterval > 0 {
		jobs, err := scheduler.New(challenges, scheduler.Config{
			Interval:   cfg.SchedulerInterval,
			AutoCreate: cfg.AutoCreateChallenge,
			Location:   loc,
		}, s.logger)
		if err != nil {
			return err
		}
		s.jobs = jobs
	}

	// === Handlers ===
	boardHandler := handler.NewLeaderboardHandler(board, admin, s.logger)
	submissionHandler := handler.NewSubmissionHandler(submissions, s.logger)
	challengeHandler := handler.NewChallengeHandler(challenges, s.logger)
	accountHandler := handler.NewAccountHandler(accounts, handler.SessionConfig{
		TTL:    tokens.TTL(),
		Secure: cfg.SecureCookie,
	}, s.logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"store": s.store.Ping,
		"cache": s.cache.Ping,
	}, s.logger)

	// === Global Middleware ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.AdminKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	fallback := handler.NewFallback(s.logger)
	r.NotFound(fallback.NotFound)
	r.MethodNotAllowed(fallback.MethodNotAllowed)

	// === Operational ===
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// === Reads ===
	r.Get("/leaderboard", boardHandler.HandleLeaderboard)
	r.Get("/challenges", challengeHandler.HandleList)
	r.Get("/challenges/browse", boardHandler.HandleBrowse)
	r.Get("/admin/leaderboard", boardHandler.HandleAdminLeaderboard)
	r.Get("/users", accountHandler.HandleListUsers)
	r.With(auth.RequireAuth(tokens)).Get("/me", accountHandler.HandleMe)
	r.Post("/logout", accountHandler.HandleLogout)

	// === Writes ===
	// Everything here either creates state or checks a secret, so it is rate
	// limited per client IP.
	r.Group(func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimitRequests,
				cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(fallback.TooManyRequests),
			))
		}

		r.Post("/task-submission", submissionHandler.HandleSubmit)
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/get-unique-code", accountHandler.HandleGetUniqueCode)
		r.Post("/create-challenge", challengeHandler.HandleCreate)
		r.Post("/turn-off-submission", challengeHandler.HandleTurnOffSubmission)
		r.Post("/change-password", accountHandler.HandleChangePassword)
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the background jobs and the HTTP server, and blocks until
// SIGINT/SIGTERM or a listener error.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the scheduler, then close the cache and the store
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if s.jobs != nil {
		s.jobs.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops the scheduler and releases the cache and the store. Errors are
// logged; the first one is returned.
func (s *Server) Close() error {
	var errs []error
	if s.jobs != nil {
		errs = append(errs, s.jobs.Shutdown())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		s.logger.Error("closing resources", slog.String("error", err.Error()))
		if first == nil {
			first = err
		}
	}
	return first
}
