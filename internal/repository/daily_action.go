package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brand-ranking/internal/pkg/db"
)

// DailyActionRepository records one-time bonus actions per user.
type DailyActionRepository struct {
	q db.Querier
}

// NewDailyActionRepository creates a new DailyActionRepository instance.
func NewDailyActionRepository(q db.Querier) *DailyActionRepository {
	return &DailyActionRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *DailyActionRepository) WithTx(tx pgx.Tx) *DailyActionRepository {
	return &DailyActionRepository{q: tx}
}

// TryRecord marks action as done for the user.
// Returns false if it had already been recorded.
func (r *DailyActionRepository) TryRecord(ctx context.Context, userID uuid.UUID, action string) (bool, error) {
	const query = `
		INSERT INTO user_daily_actions (user_id, action, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, action) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, userID, action)
	if err != nil {
		if db.IsForeignKeyViolation(err, "") {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to record daily action: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Has reports whether action was recorded for the user.
func (r *DailyActionRepository) Has(ctx context.Context, userID uuid.UUID, action string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM user_daily_actions WHERE user_id = $1 AND action = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, action).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check daily action: %w", err)
	}
	return exists, nil
}
