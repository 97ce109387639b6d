package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"brand-ranking/internal/model"
	"brand-ranking/internal/service"
)

// BrandHandler handles brand listing and the global leaderboard.
type BrandHandler struct {
	brands      BrandService
	leaderboard LeaderboardService
}

// NewBrandHandler creates a new BrandHandler.
func NewBrandHandler(brands BrandService, leaderboard LeaderboardService) *BrandHandler {
	return &BrandHandler{brands: brands, leaderboard: leaderboard}
}

// HandleList returns one page of brands.
// GET /brand-service/all?order=&search=&pageId=&limit=
func (h *BrandHandler) HandleList(c *gin.Context) {
	const action = "getAllBrands"

	page, err := h.brands.ListBrands(
		c.Request.Context(),
		model.ParseBrandOrder(c.Query("order")),
		c.Query("search"),
		queryInt(c, "pageId"),
		queryInt(c, "limit"),
	)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, page)
}

// HandleGet returns a brand by id.
// GET /brand-service/brand/:id
func (h *BrandHandler) HandleGet(c *gin.Context) {
	const action = "getBrandById"

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, action, service.ErrBrandNotFound)
		return
	}

	brand, err := h.brands.GetBrand(c.Request.Context(), id)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, brand)
}

// HandleCreate adds a brand.
// POST /brand-service/brand
func (h *BrandHandler) HandleCreate(c *gin.Context) {
	const action = "createBrand"

	var b model.Brand
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, action, "invalid request body")
		return
	}
	b.ID = 0

	created, err := h.brands.CreateBrand(c.Request.Context(), &b)
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, created)
}

// HandleLeaderboard returns the global brand leaderboard.
// GET /brand-service/leaderboard?limit=
func (h *BrandHandler) HandleLeaderboard(c *gin.Context) {
	const action = "getLeaderboard"

	rows, err := h.leaderboard.GetGlobalLeaderboard(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, action, err)
		return
	}
	respond(c, action, rows)
}
