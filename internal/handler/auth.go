package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"brand-ranking/internal/pkg/identity"
	"brand-ranking/internal/service"
)

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Domain string
	MaxAge time.Duration
	Secure bool
}

// AuthHandler handles sign-in and the current session.
type AuthHandler struct {
	auth   AuthService
	users  UserService
	voting VotingService
	cookie CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth AuthService, users UserService, voting VotingService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "Authorization"
	}
	return &AuthHandler{auth: auth, users: users, voting: voting, cookie: cookie}
}

type loginRequest struct {
	// Clients send the fid either as a number or a numeric string.
	FID       json.Number `json:"fid"`
	Signature string      `json:"signature"`
	Message   string      `json:"message"`
	Nonce     string      `json:"nonce"`
	Domain    string      `json:"domain"`
	Username  string      `json:"username"`
	PhotoURL  string      `json:"photoUrl"`
}

// HandleLogin verifies a signed sign-in message and starts a session.
// POST /auth-service/login
func (h *AuthHandler) HandleLogin(c *gin.Context) {
	const action = "logIn"

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, action, "invalid request body")
		return
	}
	fid, err := req.FID.Int64()
	if err != nil || fid <= 0 {
		badRequest(c, action, "fid must be a positive integer")
		return
	}
	if req.Message == "" || req.Signature == "" {
		badRequest(c, action, "message and signature are required")
		return
	}

	res, err := h.auth.LogIn(c.Request.Context(), service.LoginRequest{
		FID: fid,
		Credentials: identity.Credentials{
			Message:   req.Message,
			Signature: req.Signature,
			Nonce:     req.Nonce,
			Domain:    req.Domain,
		},
		Username: req.Username,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		respondError(c, action, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, res.Token, int(h.cookie.MaxAge.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)

	respond(c, action, gin.H{
		"token":         res.Token,
		"isCreated":     res.IsCreated,
		"hasVotedToday": res.HasVotedToday,
		"user":          res.User,
	})
}

// HandleLogout clears the session cookie.
// POST /auth-service/logout
func (h *AuthHandler) HandleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	respond(c, "logOut", "Successfully logged out.")
}

// HandleMe returns the session's user and whether they voted today.
// GET /auth-service/me
func (h *AuthHandler) HandleMe(c *gin.Context) {
	const action = "getMe"
	claims := Claims(c)
	if claims == nil {
		respondError(c, action, service.ErrInvalidCredentials)
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetUser(ctx, claims.UserID)
	if err != nil {
		// The account was removed after the token was issued
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, action, service.ErrInvalidCredentials)
			return
		}
		respondError(c, action, err)
		return
	}

	voted, err := h.voting.HasVotedToday(ctx, user.ID)
	if err != nil {
		respondError(c, action, err)
		return
	}

	respond(c, action, gin.H{
		"id":            user.ID,
		"fid":           user.FID,
		"username":      user.Username,
		"photoUrl":      user.PhotoURL,
		"points":        user.Points,
		"role":          user.Role,
		"createdAt":     user.CreatedAt,
		"hasVotedToday": voted,
	})
}
