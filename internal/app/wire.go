package app

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/jscomlabs/contactd/internal/auth"
	s3blob "github.com/jscomlabs/contactd/internal/blob/s3"
	"github.com/jscomlabs/contactd/internal/classify"
	"github.com/jscomlabs/contactd/internal/config"
	"github.com/jscomlabs/contactd/internal/domain"
	"github.com/jscomlabs/contactd/internal/notify"
	"github.com/jscomlabs/contactd/internal/queue/redisq"
	"github.com/jscomlabs/contactd/internal/store/postgres"
	"github.com/jscomlabs/contactd/internal/turnstile"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Fields are nil when the configured mode does not
// need them.
type Dependencies struct {
	// Stores
	Messages  domain.MessageStore
	Blocklist domain.BlocklistStore

	// Queues and events
	IntakeQueue domain.Queue
	NotifyQueue domain.Queue
	Events      domain.EventBus

	// Blob storage
	Archiver *s3blob.Archiver

	// Verification and enrichment
	Verifier   *turnstile.Verifier
	Classifier *classify.Classifier
	JWT        *auth.Verifier

	// Notification channels
	Channels []notify.Channel
}

// needsPostgres returns true for modes that require the archive database.
func needsPostgres(mode string) bool {
	switch mode {
	case "filter", "admin", "full":
		return true
	default:
		return false
	}
}

// needsRedis returns true for modes that cannot run without the queues. Admin
// mode uses Redis only for the live event feed and degrades without it.
func needsRedis(mode string) bool {
	switch mode {
	case "listener", "filter", "notifier", "full":
		return true
	default:
		return false
	}
}

// needsIntakeQueue returns true for modes that publish to or consume from the
// intake stream.
func needsIntakeQueue(mode string) bool {
	switch mode {
	case "listener", "filter", "full":
		return true
	default:
		return false
	}
}

// needsNotifyQueue returns true for modes that publish to or consume from the
// notify stream.
func needsNotifyQueue(mode string) bool {
	switch mode {
	case "filter", "notifier", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	mode := cfg.Mode

	// --- PostgreSQL (archive and blocklist stores) ---
	if needsPostgres(mode) {
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
		deps.Messages = postgres.NewMessageStore(pool)
		deps.Blocklist = postgres.NewBlocklistStore(pool)
	}

	// --- Redis (streams and event feed) ---
	if needsRedis(mode) || cfg.Redis.Addr != "" {
		redisClient, err := redisq.New(ctx, redisq.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			if needsRedis(mode) {
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			logger.WarnContext(ctx, "wire: redis unavailable, live event feed disabled",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, func() { _ = redisClient.Close() })

			deps.Events = redisq.NewEventBus(redisClient)

			if needsIntakeQueue(mode) {
				q, err := redisq.NewStreamQueue(ctx, redisClient,
					cfg.Queues.IntakeStream, cfg.Queues.Group, cfg.Queues.Consumer)
				if err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: intake queue: %w", err)
				}
				deps.IntakeQueue = q
			}
			if needsNotifyQueue(mode) {
				q, err := redisq.NewStreamQueue(ctx, redisClient,
					cfg.Queues.NotifyStream, cfg.Queues.Group, cfg.Queues.Consumer)
				if err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: notify queue: %w", err)
				}
				deps.NotifyQueue = q
			}
		}
	}

	// --- S3 blob storage (raw payload archive and admin exports) ---
	if cfg.S3.Enabled && (mode == "filter" || mode == "admin" || mode == "full") {
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

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Turnstile verification (public intake) ---
	if mode == "listener" || mode == "full" {
		deps.Verifier = turnstile.NewVerifier(
			cfg.Turnstile.VerifyURL,
			cfg.Turnstile.Secrets,
			cfg.Turnstile.Timeout.Duration,
			logger,
		)
	}

	// --- LLM classifier (optional enrichment) ---
	if cfg.Classifier.Enabled && (mode == "filter" || mode == "full") {
		deps.Classifier = classify.New(
			cfg.Classifier.BaseURL,
			cfg.Classifier.APIKey,
			cfg.Classifier.Model,
			cfg.Classifier.Timeout.Duration,
		)
	}

	// --- JWT verification (admin API) ---
	if (mode == "admin" || mode == "full") && cfg.Admin.JWKSURL != "" {
		deps.JWT = auth.NewVerifier(cfg.Admin.JWKSURL, cfg.Admin.Issuer, cfg.Admin.Audience)
	}

	// --- Notification channels ---
	if mode == "notifier" || mode == "full" {
		if cfg.Notify.Email.Enabled {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
				awsconfig.WithRegion(cfg.Notify.Email.Region),
			)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: ses: %w", err)
			}
			deps.Channels = append(deps.Channels, notify.NewEmailChannel(
				true,
				cfg.Notify.Email.Sender,
				cfg.Notify.Email.Recipient,
				sesv2.NewFromConfig(awsCfg),
			))
		}
		deps.Channels = append(deps.Channels,
			notify.NewDiscordChannel(cfg.Notify.Discord.Enabled, cfg.Notify.Discord.WebhookURL),
			notify.NewTelegramChannel(cfg.Notify.Telegram.Enabled, cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID),
		)
	}

	return deps, cleanup, nil
}
