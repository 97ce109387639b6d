package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
)

const transactionColumns = `id, user_id, amount, type, ballot_id, description, created_at`

// TransactionRepository handles the point ledger.
type TransactionRepository struct {
	q db.Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(q db.Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

func scanTransaction(row pgx.Row) (*model.PointTransaction, error) {
	var tx model.PointTransaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.BallotID,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create records a balance change.
func (r *TransactionRepository) Create(ctx context.Context, userID uuid.UUID, amount int64, txType string, description *string) (*model.PointTransaction, error) {
	query := `
		INSERT INTO point_transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, userID, amount, txType, description))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// CreateVoteReward records the reward for a ballot.
// Returns false if the ballot was already rewarded.
func (r *TransactionRepository) CreateVoteReward(ctx context.Context, userID, ballotID uuid.UUID, amount int64) (bool, error) {
	const query = `
		INSERT INTO point_transactions (user_id, amount, type, ballot_id, created_at)
		VALUES ($1, $2, 'vote_reward', $3, NOW())
		ON CONFLICT (ballot_id) WHERE type = 'vote_reward' DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, userID, amount, ballotID)
	if err != nil {
		return false, fmt.Errorf("failed to record vote reward: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// GetByUserID retrieves a user's ledger, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

// GetByUserIDAndType retrieves a user's ledger entries of one type, newest first.
func (r *TransactionRepository) GetByUserIDAndType(ctx context.Context, userID uuid.UUID, txType string, limit int) ([]*model.PointTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM point_transactions
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.list(ctx, query, userID, txType, limit)
}

// SumByUser returns the net of all ledger entries of a user.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM point_transactions WHERE user_id = $1`

	var sum int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*model.PointTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.PointTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
