package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestIsAdminProperty: a fid is an admin if and only if it is listed.
func TestIsAdminProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fids := rapid.SliceOfN(rapid.Int64Range(1, 1_000_000_000), 0, 10).Draw(t, "fids")
		cfg := &Config{Admin: AdminConfig{FIDs: fids}}

		fid := rapid.Int64Range(1, 1_000_000_000).Draw(t, "fid")
		want := false
		for _, id := range fids {
			if id == fid {
				want = true
				break
			}
		}
		if got := cfg.IsAdmin(fid); got != want {
			t.Fatalf("IsAdmin(%d) = %v with admins %v", fid, got, fids)
		}

		for _, id := range fids {
			if !cfg.IsAdmin(id) {
				t.Fatalf("listed admin %d not recognised", id)
			}
		}
	})
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("SESSION_KEY", "secret")
	t.Setenv("VOTING_REWARD", "5")
	t.Setenv("VOTING_TIMEZONE", "UTC")
	t.Setenv("ADMIN_FIDS", "7,9")
	t.Setenv("REDIS_TTL", "90s")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Session.Key)
	assert.Equal(t, int64(5), cfg.Voting.Reward)
	assert.Equal(t, int64(3), cfg.Voting.ShareBonus)
	assert.Equal(t, int64(60), cfg.Voting.Weights.First)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.IsAdmin(7))
	assert.True(t, cfg.IsAdmin(9))
	assert.False(t, cfg.IsAdmin(8))

	loc, err := cfg.Voting.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
session:
  key: from-file
voting:
  timezone: Europe/Madrid
  top_limit: 5
  weights:
    first: 5
    second: 3
    third: 1
database:
  host: db.internal
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Session.Key)
	assert.Equal(t, 5, cfg.Voting.TopLimit)
	assert.Equal(t, int64(1), cfg.Voting.Weights.Third)
	assert.Equal(t, "postgres://brnd:@db.internal:5432/brnd?sslmode=disable", cfg.Database.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Session: SessionConfig{Key: "k"},
			Voting:  VotingConfig{Reward: 3, ShareBonus: 3, TopLimit: 10, Timezone: "UTC"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing session key", func(c *Config) { c.Session.Key = "" }},
		{"negative reward", func(c *Config) { c.Voting.Reward = -1 }},
		{"zero top limit", func(c *Config) { c.Voting.TopLimit = 0 }},
		{"unknown timezone", func(c *Config) { c.Voting.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
