// Package cache keeps computed leaderboards in redis for a bounded time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/config"
	"brand-ranking/internal/model"
)

const leaderboardPrefix = "leaderboard:global:"

// Leaderboard caches global leaderboard pages keyed by limit.
type Leaderboard interface {
	Get(ctx context.Context, limit int) ([]model.BrandPoints, bool, error)
	Set(ctx context.Context, limit int, rows []model.BrandPoints) error
	Invalidate(ctx context.Context) error
}

// RedisLeaderboard is a Leaderboard stored in redis.
type RedisLeaderboard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to redis and pings it.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Redis connected")
	return rdb, nil
}

// NewRedisLeaderboard creates a RedisLeaderboard with the given entry ttl.
func NewRedisLeaderboard(rdb *redis.Client, ttl time.Duration) *RedisLeaderboard {
	return &RedisLeaderboard{rdb: rdb, ttl: ttl}
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", leaderboardPrefix, limit)
}

// Get returns the cached rows and whether they were present.
func (c *RedisLeaderboard) Get(ctx context.Context, limit int) ([]model.BrandPoints, bool, error) {
	raw, err := c.rdb.Get(ctx, leaderboardKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read leaderboard cache: %w", err)
	}

	var rows []model.BrandPoints
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, fmt.Errorf("failed to decode leaderboard cache: %w", err)
	}
	return rows, true, nil
}

// Set stores rows until the ttl elapses.
func (c *RedisLeaderboard) Set(ctx context.Context, limit int, rows []model.BrandPoints) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	if err := c.rdb.Set(ctx, leaderboardKey(limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write leaderboard cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached leaderboard page.
func (c *RedisLeaderboard) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, leaderboardPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan leaderboard keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete leaderboard keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Noop is a Leaderboard that never holds anything. It is used when no
// redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, int) ([]model.BrandPoints, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, int, []model.BrandPoints) error         { return nil }
func (Noop) Invalidate(context.Context) error                            { return nil }
