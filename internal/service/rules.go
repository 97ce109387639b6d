package service

import (
	"time"

	"brand-ranking/internal/config"
	"brand-ranking/internal/scoring"
)

// Paging defaults.
const (
	DefaultHistoryLimit = 60
	DefaultBrandLimit   = 15
	MaxPageLimit        = 500
)

// Rules are the scoring parameters shared by the services.
type Rules struct {
	Reward      int64
	ShareBonus  int64
	Weights     scoring.Weights
	TopLimit    int
	Location    *time.Location
	LockTimeout time.Duration
}

// DefaultRules returns the stock scoring rules in the local timezone.
func DefaultRules() Rules {
	return Rules{
		Reward:      3,
		ShareBonus:  3,
		Weights:     scoring.DefaultWeights,
		TopLimit:    10,
		Location:    time.Local,
		LockTimeout: 5 * time.Second,
	}
}

// RulesFromConfig builds Rules from the voting section of the config.
func RulesFromConfig(cfg *config.VotingConfig) (Rules, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Rules{}, err
	}
	return Rules{
		Reward:     cfg.Reward,
		ShareBonus: cfg.ShareBonus,
		Weights: scoring.Weights{
			First:  cfg.Weights.First,
			Second: cfg.Weights.Second,
			Third:  cfg.Weights.Third,
		},
		TopLimit:    cfg.TopLimit,
		Location:    loc,
		LockTimeout: cfg.LockTimeout,
	}, nil
}

// pageBounds turns a 1-based page and a limit into an offset and limit.
// Non-positive values fall back to page 1 and defaultLimit.
func pageBounds(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return (page - 1) * limit, limit
}
