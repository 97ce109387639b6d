package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/cache"
	"brand-ranking/internal/model"
	"brand-ranking/internal/repository"
	"brand-ranking/internal/scoring"
)

// LeaderboardService computes personal and global brand rankings.
type LeaderboardService struct {
	ballots *repository.BallotRepository
	brands  *repository.BrandRepository
	users   *repository.UserRepository
	board   cache.Leaderboard
	rules   Rules
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(
	ballots *repository.BallotRepository,
	brands *repository.BrandRepository,
	users *repository.UserRepository,
	board cache.Leaderboard,
	rules Rules,
) *LeaderboardService {
	if board == nil {
		board = cache.Noop{}
	}
	return &LeaderboardService{
		ballots: ballots,
		brands:  brands,
		users:   users,
		board:   board,
		rules:   rules,
	}
}

// GetPersonalTopBrands ranks the brands a user has voted for by their
// summed slot weights, highest first, ties by brand id ascending.
func (s *LeaderboardService) GetPersonalTopBrands(ctx context.Context, userID uuid.UUID) ([]model.BrandPoints, error) {
	ballots, err := s.ballots.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ballots: %w", err)
	}

	ranked := make([]scoring.Ranked, 0, len(ballots))
	for _, b := range ballots {
		ranked = append(ranked, scoring.Ranked(b.BrandIDs()))
	}
	tallies := scoring.TallyBallots(ranked, s.rules.Weights, s.rules.TopLimit)

	ids := make([]int64, 0, len(tallies))
	for _, t := range tallies {
		ids = append(ids, t.BrandID)
	}
	summaries, err := s.brands.GetSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}

	return attachSummaries(tallies, summaries), nil
}

// GetVoteHistory returns one page of the user's ballots, newest first,
// grouped by calendar day. A user without ballots gets an empty history.
func (s *LeaderboardService) GetVoteHistory(ctx context.Context, userID uuid.UUID, page, limit int) (*model.VoteHistory, error) {
	offset, limit := pageBounds(page, limit, DefaultHistoryLimit)

	views, total, err := s.ballots.History(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load vote history: %w", err)
	}

	return &model.VoteHistory{
		Count: total,
		Days:  groupByDay(views, s.rules.Location),
	}, nil
}

// GetGlobalLeaderboard ranks every brand by its summed slot weights across
// all ballots. Results may be served from cache and lag recent ballots by up
// to the cache ttl.
func (s *LeaderboardService) GetGlobalLeaderboard(ctx context.Context, limit int) ([]model.BrandPoints, error) {
	if limit <= 0 {
		limit = s.rules.TopLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	rows, ok, err := s.board.Get(ctx, limit)
	if err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache read failed")
	} else if ok {
		return rows, nil
	}

	rows, err = s.ballots.GlobalTally(ctx, s.rules.Weights.First, s.rules.Weights.Second, s.rules.Weights.Third, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute leaderboard: %w", err)
	}

	if err := s.board.Set(ctx, limit, rows); err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return rows, nil
}

// GetTopUsers returns the users with the highest balances.
func (s *LeaderboardService) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	_, limit = pageBounds(1, limit, s.rules.TopLimit)
	return s.users.GetTopUsers(ctx, limit)
}

func attachSummaries(tallies []scoring.Tally, summaries map[int64]model.BrandSummary) []model.BrandPoints {
	out := make([]model.BrandPoints, 0, len(tallies))
	for _, t := range tallies {
		bp := model.BrandPoints{BrandID: t.BrandID, Points: t.Points}
		if s, ok := summaries[t.BrandID]; ok {
			bp.Brand = &s
		}
		out = append(out, bp)
	}
	return out
}

// groupByDay groups views by the calendar day of their date in loc.
// Input order is kept within and across groups.
func groupByDay(views []*model.BallotView, loc *time.Location) []model.DayBallots {
	days := make([]model.DayBallots, 0)
	for _, v := range views {
		key := scoring.DayKey(v.Date, loc)
		if n := len(days); n > 0 && days[n-1].Day == key {
			days[n-1].Ballots = append(days[n-1].Ballots, *v)
			continue
		}
		days = append(days, model.DayBallots{Day: key, Ballots: []model.BallotView{*v}})
	}
	return days
}
