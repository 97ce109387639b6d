// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
// It is loaded once at startup and shared read-only by pointer.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Identity IdentityConfig `mapstructure:"identity"`
	Voting   VotingConfig   `mapstructure:"voting"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache configuration.
// An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SessionConfig holds session token configuration.
type SessionConfig struct {
	Key        string        `mapstructure:"key"`
	Domain     string        `mapstructure:"domain"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

// IdentityConfig holds the sign-in relay configuration.
type IdentityConfig struct {
	RelayURL string        `mapstructure:"relay_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// VotingConfig holds the scoring rules.
type VotingConfig struct {
	Reward      int64         `mapstructure:"reward"`
	ShareBonus  int64         `mapstructure:"share_bonus"`
	Timezone    string        `mapstructure:"timezone"`
	TopLimit    int           `mapstructure:"top_limit"`
	Weights     Weights       `mapstructure:"weights"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// Weights holds the points each ranked slot of a ballot is worth.
type Weights struct {
	First  int64 `mapstructure:"first"`
	Second int64 `mapstructure:"second"`
	Third  int64 `mapstructure:"third"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AdminConfig holds the external ids granted the admin role on login.
type AdminConfig struct {
	FIDs []int64 `mapstructure:"fids"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Addr returns the HTTP listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location resolves the configured voting timezone.
// Day buckets are computed in this location.
func (v *VotingConfig) Location() (*time.Location, error) {
	if v.Timezone == "" || strings.EqualFold(v.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid voting timezone %q: %w", v.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the
// working directory is loaded into the environment first when present.
func Load(configPath string) (*Config, error) {
	// Missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., DATABASE_HOST, SESSION_KEY, VOTING_REWARD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	// ADMIN_FIDS="1,2" arrives as a single string from the environment
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Session.Key == "" {
		return fmt.Errorf("session.key is required")
	}
	if c.Voting.Reward < 0 || c.Voting.ShareBonus < 0 {
		return fmt.Errorf("voting rewards must not be negative")
	}
	if c.Voting.TopLimit <= 0 {
		return fmt.Errorf("voting.top_limit must be positive")
	}
	if _, err := c.Voting.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "brnd")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "brnd")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("session.key", "")
	v.SetDefault("session.domain", "127.0.0.1")
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("session.cookie_name", "Authorization")

	v.SetDefault("identity.relay_url", "https://relay.farcaster.xyz")
	v.SetDefault("identity.timeout", "10s")

	v.SetDefault("voting.reward", 3)
	v.SetDefault("voting.share_bonus", 3)
	v.SetDefault("voting.timezone", "Local")
	v.SetDefault("voting.top_limit", 10)
	v.SetDefault("voting.weights.first", 60)
	v.SetDefault("voting.weights.second", 30)
	v.SetDefault("voting.weights.third", 10)
	v.SetDefault("voting.lock_timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("admin.fids", []int64{})
}

// IsAdmin checks if an external id is in the admin list.
func (c *Config) IsAdmin(fid int64) bool {
	for _, id := range c.Admin.FIDs {
		if id == fid {
			return true
		}
	}
	return false
}
