// Package handler provides the HTTP handlers of the brand ranking API.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/session"
	"brand-ranking/internal/service"
)

// VotingService is the part of the scoring engine the handlers call.
type VotingService interface {
	SubmitBallot(ctx context.Context, userID uuid.UUID, brandIDs []int64) (*model.Ballot, error)
	GetTodaysBallot(ctx context.Context, userID uuid.UUID) (*model.BallotView, error)
	GetBallotByDay(ctx context.Context, userID uuid.UUID, unixDate int64) (*model.BallotView, error)
	GetBallot(ctx context.Context, id uuid.UUID) (*model.BallotView, error)
	HasVotedToday(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PointsService changes balances outside of voting.
type PointsService interface {
	GrantShareBonusOnce(ctx context.Context, userID uuid.UUID) (bool, error)
	AdjustPoints(ctx context.Context, userID uuid.UUID, delta int64, adminID uuid.UUID) (*model.User, error)
	GetLedger(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointTransaction, error)
}

// LeaderboardService reads rankings.
type LeaderboardService interface {
	GetPersonalTopBrands(ctx context.Context, userID uuid.UUID) ([]model.BrandPoints, error)
	GetVoteHistory(ctx context.Context, userID uuid.UUID, page, limit int) (*model.VoteHistory, error)
	GetGlobalLeaderboard(ctx context.Context, limit int) ([]model.BrandPoints, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
}

// BrandService reads and creates brands.
type BrandService interface {
	ListBrands(ctx context.Context, order model.BrandOrder, search string, page, limit int) (*service.BrandPage, error)
	GetBrand(ctx context.Context, id int64) (*model.Brand, error)
	CreateBrand(ctx context.Context, b *model.Brand) (*model.Brand, error)
}

// UserService manages user accounts.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// AuthService signs users in.
type AuthService interface {
	LogIn(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
}

const claimsKey = "session"

// SetClaims stores the authenticated session on the request context.
func SetClaims(c *gin.Context, claims *session.Claims) {
	c.Set(claimsKey, claims)
}

// Claims returns the authenticated session, or nil on public routes.
func Claims(c *gin.Context) *session.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*session.Claims)
	return claims
}

// respond writes a 200 response in the {data, action} envelope.
func respond(c *gin.Context, action string, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data, "action": action})
}

// respondError maps a service error to its status code. Internal errors are
// logged and reported without detail.
func respondError(c *gin.Context, action string, err error) {
	status := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("action", action).Msg("Request failed")
		msg = "internal error"
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":  msg,
		"reason": service.Reason(err),
		"action": action,
	})
}

// badRequest rejects malformed input before it reaches a service.
func badRequest(c *gin.Context, action, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":  msg,
		"reason": "bad_request",
		"action": action,
	})
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query value. Missing or malformed
// values return 0 so services apply their defaults.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
