package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Constraint names referenced by repositories.
const (
	ConstraintBallotUserDay    = "user_brand_votes_user_day_key"
	ConstraintBallotReward     = "point_transactions_ballot_reward_key"
	ConstraintUserFID          = "users_fid_key"
	ConstraintBrandName        = "brands_name_key"
	ConstraintDailyActionsPKey = "user_daily_actions_pkey"
	ConstraintBallotUserFK     = "user_brand_votes_user_id_fkey"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
		CREATE EXTENSION IF NOT EXISTS pgcrypto;
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			fid BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			points BIGINT NOT NULL DEFAULT 0,
			role VARCHAR(16) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_fid_key UNIQUE (fid)
		);
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
		`,
	},
	{
		name: "categories and brands tables",
		sql: `
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS brands (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			warpcast_url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
			follower_count BIGINT NOT NULL DEFAULT 0,
			image_url TEXT NOT NULL DEFAULT '',
			profile TEXT NOT NULL DEFAULT '',
			channel TEXT NOT NULL DEFAULT '',
			ranking TEXT NOT NULL DEFAULT '',
			score BIGINT NOT NULL DEFAULT 0,
			state_score BIGINT NOT NULL DEFAULT 0,
			score_week BIGINT NOT NULL DEFAULT 0,
			state_score_week BIGINT NOT NULL DEFAULT 0,
			ranking_week BIGINT NOT NULL DEFAULT 0,
			bonus_points BIGINT NOT NULL DEFAULT 0,
			banned INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT brands_name_key UNIQUE (name)
		);
		CREATE INDEX IF NOT EXISTS idx_brands_created ON brands(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_brands_followers ON brands(follower_count DESC);
		`,
	},
	{
		name: "user_brand_votes table",
		sql: `
		CREATE TABLE IF NOT EXISTS user_brand_votes (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			brand1_id BIGINT NOT NULL REFERENCES brands(id),
			brand2_id BIGINT NOT NULL REFERENCES brands(id),
			brand3_id BIGINT NOT NULL REFERENCES brands(id),
			date TIMESTAMPTZ NOT NULL,
			vote_day DATE NOT NULL,
			CONSTRAINT user_brand_votes_user_day_key UNIQUE (user_id, vote_day),
			CONSTRAINT user_brand_votes_distinct_check CHECK (
				brand1_id <> brand2_id AND brand1_id <> brand3_id AND brand2_id <> brand3_id
			)
		);
		CREATE INDEX IF NOT EXISTS idx_votes_user_date ON user_brand_votes(user_id, date DESC);
		`,
	},
	{
		name: "user_daily_actions table",
		sql: `
		CREATE TABLE IF NOT EXISTS user_daily_actions (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			action VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT user_daily_actions_pkey PRIMARY KEY (user_id, action)
		);
		`,
	},
	{
		name: "point_transactions table",
		sql: `
		CREATE TABLE IF NOT EXISTS point_transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			ballot_id UUID REFERENCES user_brand_votes(id) ON DELETE SET NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS point_transactions_ballot_reward_key
			ON point_transactions(ballot_id) WHERE type = 'vote_reward';
		CREATE INDEX IF NOT EXISTS idx_point_transactions_user_time ON point_transactions(user_id, created_at DESC);
		`,
	},
}

// Migrate applies the schema. Every statement is idempotent so it is safe
// to run on each startup.
func Migrate(ctx context.Context, q Querier) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
