package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/db"
)

const brandColumns = `id, name, url, warpcast_url, description, category_id, follower_count,
	image_url, profile, channel, ranking, score, state_score, score_week, state_score_week,
	ranking_week, bonus_points, banned, created_at, updated_at`

// BrandRepository handles brand data persistence.
type BrandRepository struct {
	q db.Querier
}

// NewBrandRepository creates a new BrandRepository instance.
func NewBrandRepository(q db.Querier) *BrandRepository {
	return &BrandRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *BrandRepository) WithTx(tx pgx.Tx) *BrandRepository {
	return &BrandRepository{q: tx}
}

func scanBrand(row pgx.Row) (*model.Brand, error) {
	var b model.Brand
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.URL,
		&b.WarpcastURL,
		&b.Description,
		&b.CategoryID,
		&b.FollowerCount,
		&b.ImageURL,
		&b.Profile,
		&b.Channel,
		&b.Ranking,
		&b.Score,
		&b.StateScore,
		&b.ScoreWeek,
		&b.StateScoreWeek,
		&b.RankingWeek,
		&b.BonusPoints,
		&b.Banned,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a brand. Zero CreatedAt uses the database clock.
func (r *BrandRepository) Create(ctx context.Context, b *model.Brand) (*model.Brand, error) {
	query := `
		INSERT INTO brands (name, url, warpcast_url, description, category_id, follower_count,
			image_url, profile, channel, ranking, score, state_score, score_week, state_score_week,
			ranking_week, bonus_points, banned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			COALESCE($18, NOW()), NOW())
		RETURNING ` + brandColumns

	var createdAt any
	if !b.CreatedAt.IsZero() {
		createdAt = b.CreatedAt
	}

	created, err := scanBrand(r.q.QueryRow(ctx, query,
		b.Name, b.URL, b.WarpcastURL, b.Description, b.CategoryID, b.FollowerCount,
		b.ImageURL, b.Profile, b.Channel, b.Ranking, b.Score, b.StateScore, b.ScoreWeek,
		b.StateScoreWeek, b.RankingWeek, b.BonusPoints, b.Banned, createdAt,
	))
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintBrandName) {
			return nil, ErrDuplicateBrand
		}
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return created, nil
}

// GetByID retrieves a brand by id.
func (r *BrandRepository) GetByID(ctx context.Context, id int64) (*model.Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands WHERE id = $1`

	b, err := scanBrand(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return b, nil
}

// CountExisting returns how many of ids resolve to a brand, in one query.
func (r *BrandRepository) CountExisting(ctx context.Context, ids []int64) (int, error) {
	const query = `SELECT COUNT(*) FROM brands WHERE id = ANY($1)`

	var count int
	if err := r.q.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count brands: %w", err)
	}
	return count, nil
}

// GetSummaries loads the display fields of the given brands keyed by id.
// Unknown ids are absent from the map.
func (r *BrandRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.BrandSummary, error) {
	const query = `
		SELECT id, name, image_url, score, state_score
		FROM brands
		WHERE id = ANY($1)
	`

	out := make(map[int64]model.BrandSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get brand summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.BrandSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ImageURL, &s.Score, &s.StateScore); err != nil {
			return nil, fmt.Errorf("failed to scan brand summary: %w", err)
		}
		out[s.ID] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brand summaries: %w", err)
	}
	return out, nil
}

// List returns one page of brands matching search and the total match count.
func (r *BrandRepository) List(ctx context.Context, order model.BrandOrder, search string, offset, limit int) ([]*model.Brand, int, error) {
	pattern := "%" + escapeLike(search) + "%"

	var total int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM brands WHERE name ILIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count brands: %w", err)
	}

	query := `
		SELECT ` + brandColumns + `
		FROM brands
		WHERE name ILIKE $1
		ORDER BY ` + orderClause(order) + `
		OFFSET $2
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, pattern, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := make([]*model.Brand, 0, limit)
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating brands: %w", err)
	}

	return brands, total, nil
}

// orderClause maps a listing order to SQL. Every order ends with id so pages
// are stable.
func orderClause(order model.BrandOrder) string {
	switch order {
	case model.BrandOrderNew:
		return "created_at DESC, id DESC"
	case model.BrandOrderTrending:
		return "follower_count DESC, id ASC"
	default:
		return "id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
