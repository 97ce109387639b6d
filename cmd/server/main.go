// Package main is the entry point for the brand ranking service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/bonus"
	"brand-ranking/internal/cache"
	"brand-ranking/internal/config"
	"brand-ranking/internal/pkg/db"
	"brand-ranking/internal/pkg/identity"
	"brand-ranking/internal/pkg/lock"
	"brand-ranking/internal/pkg/session"
	"brand-ranking/internal/repository"
	"brand-ranking/internal/server"
	"brand-ranking/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	rules, err := service.RulesFromConfig(&cfg.Voting)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid voting rules")
	}

	// Leaderboard cache is optional
	var board cache.Leaderboard = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		board = cache.NewRedisLeaderboard(rdb, cfg.Redis.TTL)
	} else {
		log.Info().Msg("Redis not configured, leaderboard cache disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	brandRepo := repository.NewBrandRepository(dbPool.Pool)
	ballotRepo := repository.NewBallotRepository(dbPool.Pool)
	actionRepo := repository.NewDailyActionRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	userLock := lock.NewUserLock()

	bonuses, err := bonus.NewDefaultRegistry(rules.ShareBonus)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register bonus actions")
	}
	log.Info().
		Int("bonus_count", bonuses.Count()).
		Strs("bonuses", bonuses.Names()).
		Msg("Bonus actions registered")

	// Initialize services
	votingService := service.NewVotingService(dbPool.Pool, userRepo, brandRepo, ballotRepo, txRepo, userLock, board, rules)
	pointsService := service.NewPointsService(dbPool.Pool, userRepo, actionRepo, txRepo, userLock, bonuses, rules)
	leaderboardService := service.NewLeaderboardService(ballotRepo, brandRepo, userRepo, board, rules)
	brandService := service.NewBrandService(brandRepo)
	userService := service.NewUserService(userRepo)

	issuer := session.NewIssuer(cfg.Session.Key, cfg.Session.TTL)
	verifier := identity.NewRelayClient(cfg.Identity.RelayURL, cfg.Identity.Timeout)
	authService := service.NewAuthService(verifier, issuer, userRepo, votingService, cfg.IsAdmin)

	// Credit ballots left without a reward by an earlier crash
	if _, err := votingService.ReconcileUnaccrued(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reconcile vote rewards")
	}

	srv, err := server.New(&server.Dependencies{
		Config:      cfg,
		Issuer:      issuer,
		Health:      dbPool,
		Auth:        authService,
		Voting:      votingService,
		Points:      pointsService,
		Leaderboard: leaderboardService,
		Brands:      brandService,
		Users:       userService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// setupLogger applies the configured level and output format.
func setupLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
