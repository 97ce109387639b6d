package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/session"
	"brand-ranking/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVoting struct {
	submitted []int64
	submitErr error
	today     *model.BallotView
	voted     bool
	byDayUnix int64
}

func (f *fakeVoting) SubmitBallot(_ context.Context, userID uuid.UUID, ids []int64) (*model.Ballot, error) {
	f.submitted = ids
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.Ballot{ID: uuid.New(), UserID: userID, Brand1ID: ids[0], Brand2ID: ids[1], Brand3ID: ids[2]}, nil
}

func (f *fakeVoting) GetTodaysBallot(context.Context, uuid.UUID) (*model.BallotView, error) {
	return f.today, nil
}

func (f *fakeVoting) GetBallotByDay(_ context.Context, _ uuid.UUID, unixDate int64) (*model.BallotView, error) {
	f.byDayUnix = unixDate
	return f.today, nil
}

func (f *fakeVoting) GetBallot(_ context.Context, id uuid.UUID) (*model.BallotView, error) {
	if f.today == nil || f.today.ID != id {
		return nil, service.ErrBallotNotFound
	}
	return f.today, nil
}

func (f *fakeVoting) HasVotedToday(context.Context, uuid.UUID) (bool, error) {
	return f.voted, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	return u, nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return service.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

type fakePoints struct {
	granted bool
	delta   int64
	adminID uuid.UUID
}

func (f *fakePoints) GrantShareBonusOnce(context.Context, uuid.UUID) (bool, error) {
	was := f.granted
	f.granted = true
	return !was, nil
}

func (f *fakePoints) AdjustPoints(_ context.Context, userID uuid.UUID, delta int64, adminID uuid.UUID) (*model.User, error) {
	if delta == 0 {
		return nil, service.ErrInvalidAmount
	}
	f.delta = delta
	f.adminID = adminID
	return &model.User{ID: userID, Points: delta}, nil
}

func (f *fakePoints) GetLedger(context.Context, uuid.UUID, int) ([]*model.PointTransaction, error) {
	return nil, nil
}

type fakeLeaderboard struct {
	limit int
	page  int
}

func (f *fakeLeaderboard) GetPersonalTopBrands(context.Context, uuid.UUID) ([]model.BrandPoints, error) {
	return []model.BrandPoints{{BrandID: 1, Points: 90}, {BrandID: 2, Points: 90}}, nil
}

func (f *fakeLeaderboard) GetVoteHistory(_ context.Context, _ uuid.UUID, page, limit int) (*model.VoteHistory, error) {
	f.page, f.limit = page, limit
	return &model.VoteHistory{Count: 0, Days: []model.DayBallots{}}, nil
}

func (f *fakeLeaderboard) GetGlobalLeaderboard(_ context.Context, limit int) ([]model.BrandPoints, error) {
	f.limit = limit
	return nil, errors.New("database is down")
}

func (f *fakeLeaderboard) GetTopUsers(context.Context, int) ([]*model.User, error) {
	return nil, nil
}

type fakeBrands struct {
	order  model.BrandOrder
	search string
}

func (f *fakeBrands) ListBrands(_ context.Context, order model.BrandOrder, search string, page, _ int) (*service.BrandPage, error) {
	f.order, f.search = order, search
	return &service.BrandPage{Page: page, Count: 1, Brands: []*model.Brand{{ID: 7, Name: "Acme"}}}, nil
}

func (f *fakeBrands) GetBrand(_ context.Context, id int64) (*model.Brand, error) {
	if id != 7 {
		return nil, service.ErrBrandNotFound
	}
	return &model.Brand{ID: 7, Name: "Acme"}, nil
}

func (f *fakeBrands) CreateBrand(_ context.Context, b *model.Brand) (*model.Brand, error) {
	if b.Name == "" {
		return nil, service.ErrInvalidBrand
	}
	b.ID = 8
	return b, nil
}

type fakeAuth struct {
	result *service.LoginResult
	err    error
	req    service.LoginRequest
}

func (f *fakeAuth) LogIn(_ context.Context, req service.LoginRequest) (*service.LoginResult, error) {
	f.req = req
	return f.result, f.err
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Action string          `json:"action"`
	Error  string          `json:"error"`
	Reason string          `json:"reason"`
}

// withClaims stands in for the session middleware.
func withClaims(claims *session.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetClaims(c, claims)
		c.Next()
	}
}

func httpDo(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestVoteHandler_Submit(t *testing.T) {
	claims := &session.Claims{UserID: uuid.New(), Role: model.RoleUser}

	tests := []struct {
		name       string
		body       any
		submitErr  error
		wantStatus int
		wantReason string
	}{
		{"numbers", gin.H{"ids": []int64{3, 1, 2}}, nil, http.StatusOK, ""},
		{"numeric strings", gin.H{"ids": []string{"3", "1", "2"}}, nil, http.StatusOK, ""},
		{"not numeric", gin.H{"ids": []string{"a", "1", "2"}}, nil, http.StatusBadRequest, "bad_request"},
		{"invalid shape", gin.H{"ids": []int64{1, 2}}, service.ErrInvalidBallotShape, http.StatusBadRequest, "invalid_ballot_shape"},
		{"unknown brand", gin.H{"ids": []int64{1, 2, 99}}, service.ErrUnknownBrand, http.StatusNotFound, "unknown_brand"},
		{"already voted", gin.H{"ids": []int64{1, 2, 3}}, service.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
		{"internal", gin.H{"ids": []int64{1, 2, 3}}, errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voting := &fakeVoting{submitErr: tt.submitErr}
			h := NewVoteHandler(voting)
			r := gin.New()
			r.PUT("/vote", withClaims(claims), h.HandleSubmit)

			w := httpDo(r, http.MethodPut, "/vote", tt.body)
			require.Equal(t, tt.wantStatus, w.Code)

			env := decode(t, w)
			assert.Equal(t, "voteBrands", env.Action)
			assert.Equal(t, tt.wantReason, env.Reason)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal error", env.Error)
			}
			if tt.wantStatus == http.StatusOK {
				var ballot model.Ballot
				require.NoError(t, json.Unmarshal(env.Data, &ballot))
				assert.Equal(t, [3]int64{3, 1, 2}, ballot.BrandIDs())
				assert.Equal(t, claims.UserID, ballot.UserID)
			}
		})
	}
}

func TestVoteHandler_Lookups(t *testing.T) {
	claims := &session.Claims{UserID: uuid.New()}
	view := &model.BallotView{ID: uuid.New(), Brand1: model.BrandSummary{ID: 1}}
	voting := &fakeVoting{today: view}
	h := NewVoteHandler(voting)

	r := gin.New()
	r.GET("/today", withClaims(claims), h.HandleToday)
	r.GET("/votes/:unixDate", withClaims(claims), h.HandleByDay)
	r.GET("/vote/:id", h.HandleGet)

	w := httpDo(r, http.MethodGet, "/today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.BallotView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, view.ID, got.ID)

	w = httpDo(r, http.MethodGet, "/votes/1714521600", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1714521600), voting.byDayUnix)

	w = httpDo(r, http.MethodGet, "/votes/yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(r, http.MethodGet, "/vote/"+view.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httpDo(r, http.MethodGet, "/vote/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ballot_not_found", decode(t, w).Reason)

	w = httpDo(r, http.MethodGet, "/vote/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No ballot today renders as null data
	voting.today = nil
	w = httpDo(r, http.MethodGet, "/today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", string(decode(t, w).Data))
}

func TestAuthHandler_Login(t *testing.T) {
	user := &model.User{ID: uuid.New(), FID: 42, Username: "alice", Role: model.RoleUser}
	auth := &fakeAuth{result: &service.LoginResult{Token: "signed", User: user, IsCreated: true}}
	h := NewAuthHandler(auth, &fakeUsers{}, &fakeVoting{}, CookieConfig{Name: "Authorization", Domain: "example.com", MaxAge: time.Hour})

	r := gin.New()
	r.POST("/login", h.HandleLogin)

	body := gin.H{
		"fid":       "42",
		"signature": "0xabc",
		"message":   "example.com wants you to sign in",
		"nonce":     "n",
		"domain":    "example.com",
		"username":  "alice",
	}
	w := httpDo(r, http.MethodPost, "/login", body)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, int64(42), auth.req.FID)
	assert.Equal(t, "0xabc", auth.req.Credentials.Signature)
	assert.Equal(t, "alice", auth.req.Username)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "Authorization", cookies[0].Name)
	assert.Equal(t, "signed", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	var data struct {
		IsCreated     bool        `json:"isCreated"`
		HasVotedToday bool        `json:"hasVotedToday"`
		User          *model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.True(t, data.IsCreated)
	assert.False(t, data.HasVotedToday)
	assert.Equal(t, user.ID, data.User.ID)
}

func TestAuthHandler_LoginRejected(t *testing.T) {
	auth := &fakeAuth{err: service.ErrInvalidCredentials}
	h := NewAuthHandler(auth, &fakeUsers{}, &fakeVoting{}, CookieConfig{})

	r := gin.New()
	r.POST("/login", h.HandleLogin)

	w := httpDo(r, http.MethodPost, "/login", gin.H{"fid": 42, "signature": "0x1", "message": "m"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w).Reason)
	assert.Empty(t, w.Result().Cookies())

	w = httpDo(r, http.MethodPost, "/login", gin.H{"fid": "abc", "signature": "0x1", "message": "m"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(r, http.MethodPost, "/login", gin.H{"fid": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	user := &model.User{ID: uuid.New(), FID: 42, Username: "alice", Points: 6}
	users := &fakeUsers{users: map[uuid.UUID]*model.User{user.ID: user}}
	h := NewAuthHandler(&fakeAuth{}, users, &fakeVoting{voted: true}, CookieConfig{})

	r := gin.New()
	r.GET("/me", withClaims(&session.Claims{UserID: user.ID}), h.HandleMe)
	r.GET("/me-gone", withClaims(&session.Claims{UserID: uuid.New()}), h.HandleMe)
	r.POST("/logout", h.HandleLogout)

	w := httpDo(r, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Points        int64 `json:"points"`
		HasVotedToday bool  `json:"hasVotedToday"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &me))
	assert.Equal(t, int64(6), me.Points)
	assert.True(t, me.HasVotedToday)

	w = httpDo(r, http.MethodGet, "/me-gone", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httpDo(r, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestUserHandler(t *testing.T) {
	admin := &session.Claims{UserID: uuid.New(), Role: model.RoleAdmin}
	user := &model.User{ID: uuid.New(), Username: "alice", FID: 42, Points: 3}
	users := &fakeUsers{users: map[uuid.UUID]*model.User{user.ID: user}}
	points := &fakePoints{}
	board := &fakeLeaderboard{}
	h := NewUserHandler(users, points, board)

	r := gin.New()
	r.GET("/user/:id", h.HandleGet)
	r.PATCH("/user/:id", withClaims(admin), h.HandleUpdate)
	r.DELETE("/user/:id", withClaims(admin), h.HandleDelete)
	r.GET("/user/:id/vote-history", h.HandleVoteHistory)
	r.POST("/user/:id/points", withClaims(admin), h.HandleAdjustPoints)
	r.GET("/brands", withClaims(admin), h.HandleBrands)
	r.POST("/share-frame", withClaims(admin), h.HandleShareFrame)

	t.Run("get hides fid and role", func(t *testing.T) {
		w := httpDo(r, http.MethodGet, "/user/"+user.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		assert.Equal(t, "alice", got["username"])
		assert.NotContains(t, got, "fid")
		assert.NotContains(t, got, "role")
	})

	t.Run("vote history passes paging", func(t *testing.T) {
		w := httpDo(r, http.MethodGet, "/user/"+user.ID.String()+"/vote-history?pageId=2&limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, board.page)
		assert.Equal(t, 5, board.limit)

		w = httpDo(r, http.MethodGet, "/user/"+user.ID.String()+"/vote-history?pageId=x", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, board.page)
	})

	t.Run("update", func(t *testing.T) {
		w := httpDo(r, http.MethodPatch, "/user/"+user.ID.String(), gin.H{"username": "bob"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "bob", user.Username)
	})

	t.Run("adjust points", func(t *testing.T) {
		w := httpDo(r, http.MethodPost, "/user/"+user.ID.String()+"/points", gin.H{"delta": -4})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(-4), points.delta)
		assert.Equal(t, admin.UserID, points.adminID)

		w = httpDo(r, http.MethodPost, "/user/"+user.ID.String()+"/points", gin.H{"delta": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_amount", decode(t, w).Reason)
	})

	t.Run("share frame once", func(t *testing.T) {
		w := httpDo(r, http.MethodPost, "/share-frame", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", string(decode(t, w).Data))

		w = httpDo(r, http.MethodPost, "/share-frame", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "false", string(decode(t, w).Data))
	})

	t.Run("personal brands", func(t *testing.T) {
		w := httpDo(r, http.MethodGet, "/brands", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var top []model.BrandPoints
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &top))
		assert.Len(t, top, 2)
	})

	t.Run("delete", func(t *testing.T) {
		w := httpDo(r, http.MethodDelete, "/user/"+user.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = httpDo(r, http.MethodGet, "/user/"+user.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "user_not_found", decode(t, w).Reason)
	})
}

func TestBrandHandler(t *testing.T) {
	brands := &fakeBrands{}
	board := &fakeLeaderboard{}
	h := NewBrandHandler(brands, board)

	r := gin.New()
	r.GET("/all", h.HandleList)
	r.GET("/brand/:id", h.HandleGet)
	r.POST("/brand", h.HandleCreate)
	r.GET("/leaderboard", h.HandleLeaderboard)

	w := httpDo(r, http.MethodGet, "/all?order=trending&search=ac&pageId=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.BrandOrderTrending, brands.order)
	assert.Equal(t, "ac", brands.search)
	var page service.BrandPage
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &page))
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 1, page.Count)

	httpDo(r, http.MethodGet, "/all?order=bogus", nil)
	assert.Equal(t, model.BrandOrderAll, brands.order)

	w = httpDo(r, http.MethodGet, "/brand/7", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = httpDo(r, http.MethodGet, "/brand/8", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = httpDo(r, http.MethodGet, "/brand/acme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httpDo(r, http.MethodPost, "/brand", gin.H{"id": 99, "name": "New"})
	require.Equal(t, http.StatusOK, w.Code)
	var created model.Brand
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, int64(8), created.ID)

	w = httpDo(r, http.MethodPost, "/brand", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(r, http.MethodGet, "/leaderboard?limit=5", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 5, board.limit)
	assert.Equal(t, "internal error", decode(t, w).Error)
}
