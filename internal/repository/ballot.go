package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
)

const ballotColumns = `id, user_id, brand1_id, brand2_id, brand3_id, date, vote_day`

// ballotViewSelect joins the three ranked brands of a ballot.
const ballotViewSelect = `
	SELECT v.id, v.date,
		b1.id, b1.name, b1.image_url, b1.score, b1.state_score,
		b2.id, b2.name, b2.image_url, b2.score, b2.state_score,
		b3.id, b3.name, b3.image_url, b3.score, b3.state_score
	FROM user_brand_votes v
	JOIN brands b1 ON b1.id = v.brand1_id
	JOIN brands b2 ON b2.id = v.brand2_id
	JOIN brands b3 ON b3.id = v.brand3_id
`

// BallotRepository handles ballot persistence. Ballots are append-only.
type BallotRepository struct {
	q db.Querier
}

// NewBallotRepository creates a new BallotRepository instance.
func NewBallotRepository(q db.Querier) *BallotRepository {
	return &BallotRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *BallotRepository) WithTx(tx pgx.Tx) *BallotRepository {
	return &BallotRepository{q: tx}
}

func scanBallot(row pgx.Row) (*model.Ballot, error) {
	var b model.Ballot
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Brand1ID,
		&b.Brand2ID,
		&b.Brand3ID,
		&b.Date,
		&b.VoteDay,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBallotView(row pgx.Row) (*model.BallotView, error) {
	var v model.BallotView
	err := row.Scan(
		&v.ID, &v.Date,
		&v.Brand1.ID, &v.Brand1.Name, &v.Brand1.ImageURL, &v.Brand1.Score, &v.Brand1.StateScore,
		&v.Brand2.ID, &v.Brand2.Name, &v.Brand2.ImageURL, &v.Brand2.Score, &v.Brand2.StateScore,
		&v.Brand3.ID, &v.Brand3.Name, &v.Brand3.ImageURL, &v.Brand3.Score, &v.Brand3.StateScore,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Insert records a ballot. A second ballot for the same user and day
// returns ErrDuplicateBallot.
func (r *BallotRepository) Insert(ctx context.Context, b *model.Ballot) error {
	const query = `
		INSERT INTO user_brand_votes (id, user_id, brand1_id, brand2_id, brand3_id, date, vote_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query, b.ID, b.UserID, b.Brand1ID, b.Brand2ID, b.Brand3ID, b.Date, b.VoteDay)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintBallotUserDay) {
			return ErrDuplicateBallot
		}
		if db.IsForeignKeyViolation(err, db.ConstraintBallotUserFK) {
			return ErrUserNotFound
		}
		if db.IsForeignKeyViolation(err, "") {
			return ErrBrandNotFound
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// FindByDay returns the user's ballot for the given day bucket, the same key
// the unique constraint is on. Returns ErrBallotNotFound when there is none.
func (r *BallotRepository) FindByDay(ctx context.Context, userID uuid.UUID, day time.Time) (*model.Ballot, error) {
	query := `
		SELECT ` + ballotColumns + `
		FROM user_brand_votes
		WHERE user_id = $1 AND vote_day = $2
	`

	b, err := scanBallot(r.q.QueryRow(ctx, query, userID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to find ballot: %w", err)
	}
	return b, nil
}

// GetByID retrieves a ballot by id.
func (r *BallotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ballot, error) {
	query := `SELECT ` + ballotColumns + ` FROM user_brand_votes WHERE id = $1`

	b, err := scanBallot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	return b, nil
}

// GetView retrieves a ballot with its brands joined.
func (r *BallotRepository) GetView(ctx context.Context, id uuid.UUID) (*model.BallotView, error) {
	v, err := scanBallotView(r.q.QueryRow(ctx, ballotViewSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot view: %w", err)
	}
	return v, nil
}

// ListByUser returns every ballot of a user in chronological order.
func (r *BallotRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ballot, error) {
	query := `
		SELECT ` + ballotColumns + `
		FROM user_brand_votes
		WHERE user_id = $1
		ORDER BY date ASC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*model.Ballot
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}

	return ballots, nil
}

// History returns one page of a user's ballots, newest first, with brands
// joined, and the user's total ballot count.
func (r *BallotRepository) History(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*model.BallotView, int, error) {
	var total int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM user_brand_votes WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := ballotViewSelect + `
		WHERE v.user_id = $1
		ORDER BY v.date DESC
		OFFSET $2
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get vote history: %w", err)
	}
	defer rows.Close()

	var views []*model.BallotView
	for rows.Next() {
		v, err := scanBallotView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ballot view: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating vote history: %w", err)
	}

	return views, total, nil
}

// GlobalTally sums slot weights per brand over all ballots, highest first,
// ties broken by brand id ascending.
func (r *BallotRepository) GlobalTally(ctx context.Context, first, second, third int64, limit int) ([]model.BrandPoints, error) {
	const query = `
		WITH slots AS (
			SELECT brand1_id AS brand_id, $1::BIGINT AS pts FROM user_brand_votes
			UNION ALL
			SELECT brand2_id, $2::BIGINT FROM user_brand_votes
			UNION ALL
			SELECT brand3_id, $3::BIGINT FROM user_brand_votes
		)
		SELECT s.brand_id, SUM(s.pts)::BIGINT AS points,
			b.name, b.image_url, b.score, b.state_score
		FROM slots s
		JOIN brands b ON b.id = s.brand_id
		GROUP BY s.brand_id, b.name, b.image_url, b.score, b.state_score
		ORDER BY points DESC, s.brand_id ASC
		LIMIT $4
	`

	rows, err := r.q.Query(ctx, query, first, second, third, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to tally ballots: %w", err)
	}
	defer rows.Close()

	result := make([]model.BrandPoints, 0, limit)
	for rows.Next() {
		var bp model.BrandPoints
		var s model.BrandSummary
		if err := rows.Scan(&bp.BrandID, &bp.Points, &s.Name, &s.ImageURL, &s.Score, &s.StateScore); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		s.ID = bp.BrandID
		bp.Brand = &s
		result = append(result, bp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", err)
	}

	return result, nil
}

// ListUnaccrued returns ballots with no vote_reward ledger entry, oldest first.
func (r *BallotRepository) ListUnaccrued(ctx context.Context, limit int) ([]*model.Ballot, error) {
	const query = `
		SELECT v.id, v.user_id, v.brand1_id, v.brand2_id, v.brand3_id, v.date, v.vote_day
		FROM user_brand_votes v
		WHERE NOT EXISTS (
			SELECT 1 FROM point_transactions t
			WHERE t.ballot_id = v.id AND t.type = 'vote_reward'
		)
		ORDER BY v.date ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unaccrued ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*model.Ballot
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}

	return ballots, nil
}
