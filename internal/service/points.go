package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/bonus"
	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
	"brand-ranking/internal/pkg/lock"
	"brand-ranking/internal/repository"
)

// PointsService handles balance changes outside of voting.
type PointsService struct {
	pool    *pgxpool.Pool
	users   *repository.UserRepository
	actions *repository.DailyActionRepository
	txs     *repository.TransactionRepository
	locks   *lock.UserLock
	bonuses *bonus.Registry
	rules   Rules
}

// NewPointsService creates a new PointsService instance.
func NewPointsService(
	pool *pgxpool.Pool,
	users *repository.UserRepository,
	actions *repository.DailyActionRepository,
	txs *repository.TransactionRepository,
	locks *lock.UserLock,
	bonuses *bonus.Registry,
	rules Rules,
) *PointsService {
	return &PointsService{
		pool:    pool,
		users:   users,
		actions: actions,
		txs:     txs,
		locks:   locks,
		bonuses: bonuses,
		rules:   rules,
	}
}

// GrantShareBonusOnce credits the share bonus the first time it is called
// for a user. Returns whether points were credited by this call.
func (s *PointsService) GrantShareBonusOnce(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.GrantBonusOnce(ctx, userID, bonus.ActionShareFirstTime)
}

// GrantBonusOnce credits the named bonus action at most once per user.
// Recording the action and crediting points commit together.
func (s *PointsService) GrantBonusOnce(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	action, ok := s.bonuses.Get(name)
	if !ok {
		return false, ErrUnknownBonus
	}

	var granted bool
	err := s.locks.WithLock(ctx, userID, s.rules.LockTimeout, func() error {
		return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
			recorded, err := s.actions.WithTx(tx).TryRecord(ctx, userID, action.Name)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			if !recorded {
				return nil
			}

			if _, err := s.users.WithTx(tx).AddPoints(ctx, userID, action.Points); err != nil {
				return err
			}
			desc := action.Name
			if _, err := s.txs.WithTx(tx).Create(ctx, userID, action.Points, action.TxType, &desc); err != nil {
				return err
			}

			granted = true
			return nil
		})
	})
	if err != nil {
		return false, lockError(err)
	}

	if granted {
		log.Info().
			Str("user_id", userID.String()).
			Str("action", action.Name).
			Int64("points", action.Points).
			Msg("Bonus granted")
	}
	return granted, nil
}

// AdjustPoints adds delta to a user's balance on behalf of an admin.
// The balance may become negative.
func (s *PointsService) AdjustPoints(ctx context.Context, userID uuid.UUID, delta int64, adminID uuid.UUID) (*model.User, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}

	txType := model.TxTypeAdminAdd
	if delta < 0 {
		txType = model.TxTypeAdminSub
	}
	desc := fmt.Sprintf("adjusted by %s", adminID)

	var user *model.User
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		u, err := s.users.WithTx(tx).AddPoints(ctx, userID, delta)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if _, err := s.txs.WithTx(tx).Create(ctx, userID, delta, txType, &desc); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("admin_id", adminID.String()).
		Int64("delta", delta).
		Int64("balance", user.Points).
		Msg("Points adjusted")

	return user, nil
}

// GetLedger returns the user's most recent balance changes.
func (s *PointsService) GetLedger(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointTransaction, error) {
	_, limit = pageBounds(1, limit, DefaultHistoryLimit)
	return s.txs.GetByUserID(ctx, userID, limit)
}
