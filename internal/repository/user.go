// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBrandNotFound   = errors.New("brand not found")
	ErrBallotNotFound  = errors.New("ballot not found")
	ErrDuplicateBallot = errors.New("ballot already recorded for this day")
	ErrDuplicateBrand  = errors.New("brand name already exists")
)

const userColumns = `id, fid, username, photo_url, points, role, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	q db.Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(q db.Querier) *UserRepository {
	return &UserRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.FID,
		&user.Username,
		&user.PhotoURL,
		&user.Points,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user keyed by fid or refreshes its profile.
// A RoleAdmin argument promotes an existing user; RoleUser never demotes.
// Returns whether the row was newly inserted.
func (r *UserRepository) Upsert(ctx context.Context, fid int64, username, photoURL string, role model.Role) (*model.User, bool, error) {
	const query = `
		INSERT INTO users (fid, username, photo_url, points, role, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (fid) DO UPDATE SET
			username = EXCLUDED.username,
			photo_url = EXCLUDED.photo_url,
			role = CASE WHEN EXCLUDED.role = 'admin' THEN 'admin' ELSE users.role END,
			updated_at = NOW()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var user model.User
	var inserted bool
	err := r.q.QueryRow(ctx, query, fid, username, photoURL, role).Scan(
		&user.ID,
		&user.FID,
		&user.Username,
		&user.PhotoURL,
		&user.Points,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, inserted, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByFID retrieves a user by external identity.
func (r *UserRepository) GetByFID(ctx context.Context, fid int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE fid = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, fid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by fid: %w", err)
	}
	return user, nil
}

// AddPoints adds delta to the user's balance in a single statement.
// The delta can be negative; no lower bound is enforced.
func (r *UserRepository) AddPoints(ctx context.Context, id uuid.UUID, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add points: %w", err)
	}
	return user, nil
}

// Update applies the non-nil fields of upd.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
			photo_url = COALESCE($3, photo_url),
			role = COALESCE($4, role),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}

	user, err := scanUser(r.q.QueryRow(ctx, query, id, upd.Username, upd.PhotoURL, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete removes a user and, through cascades, their ballots and ledger rows.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetTopUsers retrieves the top N users by points.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY points DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Exists checks if a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
