package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"brand-ranking/internal/service"
)

// VoteHandler handles ballot submission and lookup.
type VoteHandler struct {
	voting VotingService
}

// NewVoteHandler creates a new VoteHandler.
func NewVoteHandler(voting VotingService) *VoteHandler {
	return &VoteHandler{voting: voting}
}

type voteRequest struct {
	IDs []json.Number `json:"ids"`
}

// HandleSubmit records the session user's ballot for today. ids are in rank
// order, first place first.
// PUT /brand-service/vote
func (h *VoteHandler) HandleSubmit(c *gin.Context) {
	const action = "voteBrands"
	claims := Claims(c)

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, action, "invalid request body")
		return
	}
	ids := make([]int64, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := raw.Int64()
		if err != nil {
			badRequest(c, action, "brand ids must be integers")
			return
		}
		ids = append(ids, id)
	}

	ballot, err := h.voting.SubmitBallot(c.Request.Context(), claims.UserID, ids)
	if err != nil {
		respondError(c, action, err)
		return
	}

	respond(c, action, ballot)
}

// HandleToday returns the session user's ballot for today, or null.
// GET /user-service/today
func (h *VoteHandler) HandleToday(c *gin.Context) {
	const action = "getTodaysVote"
	claims := Claims(c)

	view, err := h.voting.GetTodaysBallot(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, view)
}

// HandleByDay returns the session user's ballot for the day containing a
// unix timestamp, or null.
// GET /user-service/votes/:unixDate
func (h *VoteHandler) HandleByDay(c *gin.Context) {
	const action = "getUserVotes"
	claims := Claims(c)

	unixDate, err := strconv.ParseInt(c.Param("unixDate"), 10, 64)
	if err != nil {
		badRequest(c, action, "unixDate must be a unix timestamp in seconds")
		return
	}

	view, err := h.voting.GetBallotByDay(c.Request.Context(), claims.UserID, unixDate)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, view)
}

// HandleGet returns a ballot by id.
// GET /vote-service/:id
func (h *VoteHandler) HandleGet(c *gin.Context) {
	const action = "getVoteById"

	id, ok := uuidParam(c, "id")
	if !ok {
		respondError(c, action, service.ErrBallotNotFound)
		return
	}

	view, err := h.voting.GetBallot(c.Request.Context(), id)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, view)
}
