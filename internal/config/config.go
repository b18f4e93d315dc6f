// Package config defines the top-level configuration for the prediction game
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PRICEDUEL_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Oracle   OracleConfig   `toml:"oracle"`
	Game     GameConfig     `toml:"game"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for avatar uploads.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	PublicBaseURL  string `toml:"public_base_url"`
}

// OracleConfig holds the reference price feed parameters.
type OracleConfig struct {
	FeedURL         string   `toml:"feed_url"`
	Symbol          string   `toml:"symbol"`
	RefreshInterval duration `toml:"refresh_interval"`
	FailureBackoff  duration `toml:"failure_backoff"`
}

// GameConfig holds round scheduling parameters.
type GameConfig struct {
	Cadence duration `toml:"cadence"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML text decoding.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "priceduel",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Oracle: OracleConfig{
			FeedURL:         "https://api.binance.com",
			Symbol:          "BTCUSDT",
			RefreshInterval: duration{5 * time.Minute},
			FailureBackoff:  duration{15 * time.Minute},
		},
		Game: GameConfig{
			Cadence: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for basic consistency and returns an
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		errs = append(errs, "postgres: either dsn or host/database/user must be set")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set")
	}

	if c.Oracle.FeedURL == "" {
		errs = append(errs, "oracle: feed_url must be set")
	}
	if c.Oracle.Symbol == "" {
		errs = append(errs, "oracle: symbol must be set")
	}
	if c.Oracle.RefreshInterval.Duration <= 0 {
		errs = append(errs, "oracle: refresh_interval must be positive")
	}
	if c.Oracle.FailureBackoff.Duration < c.Oracle.RefreshInterval.Duration {
		errs = append(errs, "oracle: failure_backoff must be at least refresh_interval")
	}

	if c.Game.Cadence.Duration < time.Minute {
		errs = append(errs, "game: cadence must be at least one minute")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must be set when s3 is enabled")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, "s3: access_key and secret_key must be set when s3 is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
