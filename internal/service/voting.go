package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/cache"
	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
	"brand-ranking/internal/pkg/lock"
	"brand-ranking/internal/repository"
	"brand-ranking/internal/scoring"
)

const reconcileBatch = 500

// VotingService records daily ballots and credits the vote reward.
type VotingService struct {
	pool    *pgxpool.Pool
	users   *repository.UserRepository
	brands  *repository.BrandRepository
	ballots *repository.BallotRepository
	txs     *repository.TransactionRepository
	locks   *lock.UserLock
	board   cache.Leaderboard
	rules   Rules
	now     func() time.Time
}

// NewVotingService creates a new VotingService instance.
func NewVotingService(
	pool *pgxpool.Pool,
	users *repository.UserRepository,
	brands *repository.BrandRepository,
	ballots *repository.BallotRepository,
	txs *repository.TransactionRepository,
	locks *lock.UserLock,
	board cache.Leaderboard,
	rules Rules,
) *VotingService {
	if board == nil {
		board = cache.Noop{}
	}
	return &VotingService{
		pool:    pool,
		users:   users,
		brands:  brands,
		ballots: ballots,
		txs:     txs,
		locks:   locks,
		board:   board,
		rules:   rules,
		now:     time.Now,
	}
}

// SubmitBallot records the user's ranked ballot for today and credits the
// vote reward. brandIDs are in rank order, first place first.
//
// Validation runs before any write. The ballot, the balance change and the
// ledger entry commit together or not at all.
func (s *VotingService) SubmitBallot(ctx context.Context, userID uuid.UUID, brandIDs []int64) (*model.Ballot, error) {
	if err := scoring.CheckShape(brandIDs); err != nil {
		return nil, err
	}

	count, err := s.brands.CountExisting(ctx, brandIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check brands: %w", err)
	}
	if count != scoring.BallotSize {
		return nil, ErrUnknownBrand
	}

	var ballot *model.Ballot
	err = s.locks.WithLock(ctx, userID, s.rules.LockTimeout, func() error {
		now := s.now()

		day := scoring.DayBucket(now, s.rules.Location)
		_, err := s.ballots.FindByDay(ctx, userID, day)
		if err == nil {
			return ErrAlreadyVoted
		}
		if !errors.Is(err, repository.ErrBallotNotFound) {
			return fmt.Errorf("failed to check today's ballot: %w", err)
		}

		b := &model.Ballot{
			ID:       uuid.New(),
			UserID:   userID,
			Brand1ID: brandIDs[0],
			Brand2ID: brandIDs[1],
			Brand3ID: brandIDs[2],
			Date:     now,
			VoteDay:  day,
		}

		err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
			return s.record(ctx, tx, b)
		})
		if err != nil {
			return err
		}

		ballot = b
		return nil
	})
	if err != nil {
		return nil, lockError(err)
	}

	if err := s.board.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("ballot_id", ballot.ID.String()).
		Int64("brand1", ballot.Brand1ID).
		Int64("brand2", ballot.Brand2ID).
		Int64("brand3", ballot.Brand3ID).
		Msg("Ballot recorded")

	return ballot, nil
}

// record inserts the ballot and accrues its reward inside tx.
func (s *VotingService) record(ctx context.Context, tx pgx.Tx, b *model.Ballot) error {
	if err := s.ballots.WithTx(tx).Insert(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateBallot):
			return ErrAlreadyVoted
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, repository.ErrBrandNotFound):
			return ErrUnknownBrand
		}
		return err
	}
	_, err := s.accrue(ctx, tx, b)
	return err
}

// accrue credits the vote reward for b unless its ledger entry exists.
// Reports whether this call credited it.
func (s *VotingService) accrue(ctx context.Context, tx pgx.Tx, b *model.Ballot) (bool, error) {
	created, err := s.txs.WithTx(tx).CreateVoteReward(ctx, b.UserID, b.ID, s.rules.Reward)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if _, err := s.users.WithTx(tx).AddPoints(ctx, b.UserID, s.rules.Reward); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return true, nil
}

// ReconcileUnaccrued credits every ballot that has no reward entry in the
// ledger. It is safe to run repeatedly and concurrently with submissions.
// Returns the number of ballots this call credited; ballots credited
// meanwhile by another caller are not counted.
func (s *VotingService) ReconcileUnaccrued(ctx context.Context) (int, error) {
	credited := 0
	for {
		batch, err := s.ballots.ListUnaccrued(ctx, reconcileBatch)
		if err != nil {
			return credited, err
		}
		if len(batch) == 0 {
			break
		}

		for _, b := range batch {
			var created bool
			err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
				var err error
				created, err = s.accrue(ctx, tx, b)
				return err
			})
			if err != nil {
				return credited, fmt.Errorf("failed to accrue ballot %s: %w", b.ID, err)
			}
			if created {
				credited++
			}
		}
	}

	if credited > 0 {
		log.Info().Int("ballots", credited).Msg("Reconciled unaccrued vote rewards")
	}
	return credited, nil
}

// GetTodaysBallot returns the user's ballot for the current day, or nil if
// the user has not voted yet.
func (s *VotingService) GetTodaysBallot(ctx context.Context, userID uuid.UUID) (*model.BallotView, error) {
	return s.GetBallotOn(ctx, userID, s.now())
}

// GetBallotByDay returns the user's ballot for the day containing the unix
// timestamp, or nil.
func (s *VotingService) GetBallotByDay(ctx context.Context, userID uuid.UUID, unixDate int64) (*model.BallotView, error) {
	return s.GetBallotOn(ctx, userID, time.Unix(unixDate, 0))
}

// GetBallotOn returns the user's ballot for the day containing at, or nil.
func (s *VotingService) GetBallotOn(ctx context.Context, userID uuid.UUID, at time.Time) (*model.BallotView, error) {
	b, err := s.ballots.FindByDay(ctx, userID, scoring.DayBucket(at, s.rules.Location))
	if err != nil {
		if errors.Is(err, repository.ErrBallotNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}

	view, err := s.ballots.GetView(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	return view, nil
}

// HasVotedToday reports whether the user has a ballot for the current day.
func (s *VotingService) HasVotedToday(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := s.ballots.FindByDay(ctx, userID, scoring.DayBucket(s.now(), s.rules.Location))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrBallotNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check today's ballot: %w", err)
}

// GetBallot returns a ballot by id with its brands joined.
func (s *VotingService) GetBallot(ctx context.Context, id uuid.UUID) (*model.BallotView, error) {
	view, err := s.ballots.GetView(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBallotNotFound) {
			return nil, ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	return view, nil
}
