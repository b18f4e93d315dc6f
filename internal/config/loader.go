package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PRICEDUEL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PRICEDUEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Postgres.DSN, "PRICEDUEL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PRICEDUEL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PRICEDUEL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PRICEDUEL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PRICEDUEL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PRICEDUEL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PRICEDUEL_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PRICEDUEL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PRICEDUEL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PRICEDUEL_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "PRICEDUEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PRICEDUEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PRICEDUEL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PRICEDUEL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PRICEDUEL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PRICEDUEL_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "PRICEDUEL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PRICEDUEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PRICEDUEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "PRICEDUEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PRICEDUEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PRICEDUEL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PRICEDUEL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PRICEDUEL_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.PublicBaseURL, "PRICEDUEL_S3_PUBLIC_BASE_URL")

	setStr(&cfg.Oracle.FeedURL, "PRICEDUEL_ORACLE_FEED_URL")
	setStr(&cfg.Oracle.Symbol, "PRICEDUEL_ORACLE_SYMBOL")
	setDuration(&cfg.Oracle.RefreshInterval, "PRICEDUEL_ORACLE_REFRESH_INTERVAL")
	setDuration(&cfg.Oracle.FailureBackoff, "PRICEDUEL_ORACLE_FAILURE_BACKOFF")

	setDuration(&cfg.Game.Cadence, "PRICEDUEL_GAME_CADENCE")

	setBool(&cfg.Server.Enabled, "PRICEDUEL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PRICEDUEL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PRICEDUEL_SERVER_CORS_ORIGINS")

	setStr(&cfg.Notify.TelegramToken, "PRICEDUEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PRICEDUEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PRICEDUEL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PRICEDUEL_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "PRICEDUEL_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
