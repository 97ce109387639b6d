// Package model defines the data models for the brand ranking service.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user.
type Role string

// User roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account keyed by its external identity (fid).
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FID       int64     `db:"fid" json:"fid"`
	Username  string    `db:"username" json:"username"`
	PhotoURL  string    `db:"photo_url" json:"photoUrl"`
	Points    int64     `db:"points" json:"points"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate carries the mutable profile fields of a user.
// Nil fields are left untouched.
type UserUpdate struct {
	Username *string `json:"username"`
	PhotoURL *string `json:"photoUrl"`
	Role     *Role   `json:"role"`
}

// Category groups brands.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Brand represents a rankable brand. Score and ranking fields are
// maintained outside the voting engine.
type Brand struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	URL            string    `db:"url" json:"url"`
	WarpcastURL    string    `db:"warpcast_url" json:"warpcastUrl"`
	Description    string    `db:"description" json:"description"`
	CategoryID     *int64    `db:"category_id" json:"categoryId,omitempty"`
	FollowerCount  int64     `db:"follower_count" json:"followerCount"`
	ImageURL       string    `db:"image_url" json:"imageUrl"`
	Profile        string    `db:"profile" json:"profile"`
	Channel        string    `db:"channel" json:"channel"`
	Ranking        string    `db:"ranking" json:"ranking"`
	Score          int64     `db:"score" json:"score"`
	StateScore     int64     `db:"state_score" json:"stateScore"`
	ScoreWeek      int64     `db:"score_week" json:"scoreWeek"`
	StateScoreWeek int64     `db:"state_score_week" json:"stateScoreWeek"`
	RankingWeek    int64     `db:"ranking_week" json:"rankingWeek"`
	BonusPoints    int64     `db:"bonus_points" json:"bonusPoints"`
	Banned         int       `db:"banned" json:"banned"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// BrandSummary is the brand metadata denormalized into ballot views.
type BrandSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	Score      int64  `json:"score"`
	StateScore int64  `json:"stateScore"`
}

// Ballot is a user's ranked vote for one day. Brand1 is the first place.
type Ballot struct {
	ID       uuid.UUID `db:"id" json:"id"`
	UserID   uuid.UUID `db:"user_id" json:"userId"`
	Brand1ID int64     `db:"brand1_id" json:"brand1Id"`
	Brand2ID int64     `db:"brand2_id" json:"brand2Id"`
	Brand3ID int64     `db:"brand3_id" json:"brand3Id"`
	Date     time.Time `db:"date" json:"date"`
	VoteDay  time.Time `db:"vote_day" json:"voteDay"`
}

// BrandIDs returns the ballot's brands in rank order.
func (b *Ballot) BrandIDs() [3]int64 {
	return [3]int64{b.Brand1ID, b.Brand2ID, b.Brand3ID}
}

// BallotView is a ballot with its brands joined at read time.
type BallotView struct {
	ID     uuid.UUID    `json:"id"`
	Date   time.Time    `json:"date"`
	Brand1 BrandSummary `json:"brand1"`
	Brand2 BrandSummary `json:"brand2"`
	Brand3 BrandSummary `json:"brand3"`
}

// DayBallots groups the ballots of one calendar day.
type DayBallots struct {
	Day     string       `json:"day"`
	Ballots []BallotView `json:"ballots"`
}

// VoteHistory is a page of a user's ballots grouped by day, newest first.
type VoteHistory struct {
	Count int          `json:"count"`
	Days  []DayBallots `json:"data"`
}

// BrandPoints is one leaderboard row.
type BrandPoints struct {
	BrandID int64         `json:"brandId"`
	Points  int64         `json:"points"`
	Brand   *BrandSummary `json:"brand,omitempty"`
}

// PointTransaction represents a balance change record.
type PointTransaction struct {
	ID          int64      `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"userId"`
	Amount      int64      `db:"amount" json:"amount"`
	Type        string     `db:"type" json:"type"`
	BallotID    *uuid.UUID `db:"ballot_id" json:"ballotId,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeVoteReward = "vote_reward" // Daily ballot reward
	TxTypeShareBonus = "share_bonus" // One-time share bonus
	TxTypeAdminAdd   = "admin_add"   // Admin added points
	TxTypeAdminSub   = "admin_sub"   // Admin subtracted points
)

// DailyAction names a one-time bonus action recorded per user.
type DailyAction struct {
	UserID    uuid.UUID `db:"user_id"`
	Action    string    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}

// Brand listing orders.
type BrandOrder string

const (
	BrandOrderAll      BrandOrder = "all"
	BrandOrderNew      BrandOrder = "new"
	BrandOrderTrending BrandOrder = "trending"
)

// ParseBrandOrder maps a query value to a BrandOrder.
// Unknown values fall back to BrandOrderAll.
func ParseBrandOrder(s string) BrandOrder {
	switch BrandOrder(s) {
	case BrandOrderNew, BrandOrderTrending:
		return BrandOrder(s)
	default:
		return BrandOrderAll
	}
}
