// Package server builds the gin engine, registers routes and middleware and
// runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/config"
	"brand-ranking/internal/handler"
	"brand-ranking/internal/pkg/session"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds everything the routes need.
type Dependencies struct {
	Config      *config.Config
	Issuer      *session.Issuer
	Health      HealthChecker
	Auth        handler.AuthService
	Voting      handler.VotingService
	Points      handler.PointsService
	Leaderboard handler.LeaderboardService
	Brands      handler.BrandService
	Users       handler.UserService
}

// Server wraps the gin engine and its http.Server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    *config.Config
	issuer *session.Issuer
	health HealthChecker

	authHandler  *handler.AuthHandler
	voteHandler  *handler.VoteHandler
	userHandler  *handler.UserHandler
	brandHandler *handler.BrandHandler
}

// New creates a Server with all routes registered.
func New(deps *Dependencies) (*Server, error) {
	if deps.Issuer == nil {
		return nil, fmt.Errorf("session issuer is required")
	}

	if deps.Config.Server.Mode != "" {
		gin.SetMode(deps.Config.Server.Mode)
	}

	s := &Server{
		engine: gin.New(),
		cfg:    deps.Config,
		issuer: deps.Issuer,
		health: deps.Health,
	}

	sess := deps.Config.Session
	s.authHandler = handler.NewAuthHandler(deps.Auth, deps.Users, deps.Voting, handler.CookieConfig{
		Name:   sess.CookieName,
		Domain: sess.Domain,
		MaxAge: sess.TTL,
		Secure: deps.Config.Server.Mode == gin.ReleaseMode,
	})
	s.voteHandler = handler.NewVoteHandler(deps.Voting)
	s.userHandler = handler.NewUserHandler(deps.Users, deps.Points, deps.Leaderboard)
	s.brandHandler = handler.NewBrandHandler(deps.Brands, deps.Leaderboard)

	s.registerMiddleware()
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              deps.Config.Server.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) registerMiddleware() {
	s.engine.Use(RecoveryMiddleware())
	s.engine.Use(LoggingMiddleware())
}

func (s *Server) registerRoutes() {
	r := s.engine
	authn := AuthMiddleware(s.issuer, s.cfg.Session.CookieName)
	admin := AdminMiddleware()

	r.GET("/healthz", s.handleHealth)

	auth := r.Group("/auth-service")
	auth.POST("/login", s.authHandler.HandleLogin)
	auth.POST("/logout", authn, s.authHandler.HandleLogout)
	auth.GET("/me", authn, s.authHandler.HandleMe)

	users := r.Group("/user-service")
	users.GET("/user/:id", s.userHandler.HandleGet)
	users.GET("/user/:id/vote-history", s.userHandler.HandleVoteHistory)
	users.GET("/top", s.userHandler.HandleTop)
	users.GET("/votes/:unixDate", authn, s.voteHandler.HandleByDay)
	users.GET("/today", authn, s.voteHandler.HandleToday)
	users.GET("/brands", authn, s.userHandler.HandleBrands)
	users.POST("/share-frame", authn, s.userHandler.HandleShareFrame)
	users.PATCH("/user/:id", authn, admin, s.userHandler.HandleUpdate)
	users.DELETE("/user/:id", authn, admin, s.userHandler.HandleDelete)
	users.POST("/user/:id/points", authn, admin, s.userHandler.HandleAdjustPoints)
	users.GET("/user/:id/ledger", authn, admin, s.userHandler.HandleLedger)

	brands := r.Group("/brand-service")
	brands.GET("/all", s.brandHandler.HandleList)
	brands.GET("/brand/:id", s.brandHandler.HandleGet)
	brands.GET("/leaderboard", s.brandHandler.HandleLeaderboard)
	brands.PUT("/vote", authn, s.voteHandler.HandleSubmit)
	brands.POST("/brand", authn, admin, s.brandHandler.HandleCreate)

	votes := r.Group("/vote-service")
	votes.GET("/:id", s.voteHandler.HandleGet)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Stop is called. It returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("Starting HTTP server...")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, waiting at most until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP server...")
	return s.http.Shutdown(ctx)
}
