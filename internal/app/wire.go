package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/priceduel/priceduel/internal/blob/s3"
	"github.com/priceduel/priceduel/internal/cache/redis"
	"github.com/priceduel/priceduel/internal/config"
	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/notify"
	"github.com/priceduel/priceduel/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	RoundStore    domain.RoundStore
	StakeStore    domain.StakeStore
	UserStore     domain.UserStore
	ReferralStore domain.ReferralStore

	// Caches
	PriceCache  domain.PriceCache
	RatingStore domain.RatingStore
	LockManager domain.LockManager

	// Blob storage. Nil when S3 is disabled; avatar uploads then fail with
	// a configuration error instead of a crash.
	AvatarStore domain.AvatarStore

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.RoundStore = postgres.NewRoundStore(pool)
	deps.StakeStore = postgres.NewStakeStore(pool)
	deps.UserStore = postgres.NewUserStore(pool)
	deps.ReferralStore = postgres.NewReferralStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RatingStore = redis.NewRatingStore(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (avatar uploads) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.AvatarStore = s3blob.NewAvatarStore(s3Client, cfg.S3.PublicBaseURL)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// notifierAdapter bridges the multi-channel notifier into the fire-and-forget
// interface the settler expects. Delivery errors are already logged per sender.
type notifierAdapter struct {
	n *notify.Notifier
}

func (a notifierAdapter) Notify(ctx context.Context, event, title, message string) {
	_ = a.n.Notify(ctx, event, title, message)
}
