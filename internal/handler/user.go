package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"brand-ranking/internal/model"
	"brand-ranking/internal/service"
)

// UserHandler handles user profiles, history and points.
type UserHandler struct {
	users       UserService
	points      PointsService
	leaderboard LeaderboardService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, points PointsService, leaderboard LeaderboardService) *UserHandler {
	return &UserHandler{users: users, points: points, leaderboard: leaderboard}
}

// publicUser is the profile visible to any caller.
type publicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PhotoURL  string    `json:"photoUrl"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPublicUser(u *model.User) publicUser {
	return publicUser{
		ID:        u.ID.String(),
		Username:  u.Username,
		PhotoURL:  u.PhotoURL,
		Points:    u.Points,
		CreatedAt: u.CreatedAt,
	}
}

// HandleGet returns a user's public profile.
// GET /user-service/user/:id
func (h *UserHandler) HandleGet(c *gin.Context) {
	const action = "getUserById"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, toPublicUser(user))
}

// HandleUpdate applies an admin edit to a user.
// PATCH /user-service/user/:id
func (h *UserHandler) HandleUpdate(c *gin.Context) {
	const action = "updateUser"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	var upd model.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, action, "invalid request body")
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, user)
}

// HandleDelete removes a user.
// DELETE /user-service/user/:id
func (h *UserHandler) HandleDelete(c *gin.Context) {
	const action = "deleteUser"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, true)
}

// HandleVoteHistory returns a page of a user's ballots grouped by day.
// GET /user-service/user/:id/vote-history?pageId=&limit=
func (h *UserHandler) HandleVoteHistory(c *gin.Context) {
	const action = "getUserVoteHistory"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	history, err := h.leaderboard.GetVoteHistory(c.Request.Context(), id, queryInt(c, "pageId"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, history)
}

// HandleBrands returns the session user's personal top brands.
// GET /user-service/brands
func (h *UserHandler) HandleBrands(c *gin.Context) {
	const action = "getUserBrands"
	claims := Claims(c)

	top, err := h.leaderboard.GetPersonalTopBrands(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, top)
}

// HandleShareFrame credits the one-time share bonus.
// POST /user-service/share-frame
func (h *UserHandler) HandleShareFrame(c *gin.Context) {
	const action = "addPointsForShareFrame"
	claims := Claims(c)

	granted, err := h.points.GrantShareBonusOnce(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, granted)
}

type adjustRequest struct {
	Delta int64 `json:"delta"`
}

// HandleAdjustPoints adds or subtracts points on behalf of an admin.
// POST /user-service/user/:id/points
func (h *UserHandler) HandleAdjustPoints(c *gin.Context) {
	const action = "adjustPoints"
	claims := Claims(c)

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, action, "invalid request body")
		return
	}

	user, err := h.points.AdjustPoints(c.Request.Context(), id, req.Delta, claims.UserID)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, user)
}

// HandleLedger returns a user's recent balance changes.
// GET /user-service/user/:id/ledger?limit=
func (h *UserHandler) HandleLedger(c *gin.Context) {
	const action = "getLedger"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrUserNotFound)
		return
	}

	ledger, err := h.points.GetLedger(c.Request.Context(), id, queryInt(c, "limit"))
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, ledger)
}

// HandleTop returns the users with the highest balances.
// GET /user-service/top?limit=
func (h *UserHandler) HandleTop(c *gin.Context) {
	const action = "getTopUsers"

	users, err := h.leaderboard.GetTopUsers(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, action, err)
		return
	}

	out := make([]publicUser, 0, len(users))
	for _, u := range users {
		out = append(out, toPublicUser(u))
	}
	respond(c, action, out)
}
