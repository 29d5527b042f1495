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
// built-in defaults, applies CONTACTD_* environment variable overrides, and
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

// applyEnvOverrides reads well-known CONTACTD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets and channel flags at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "CONTACTD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CONTACTD_SERVER_CORS_ORIGINS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CONTACTD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CONTACTD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CONTACTD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CONTACTD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CONTACTD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CONTACTD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CONTACTD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CONTACTD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CONTACTD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CONTACTD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CONTACTD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CONTACTD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CONTACTD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CONTACTD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CONTACTD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CONTACTD_REDIS_TLS_ENABLED")

	// ── Queues ──
	setStr(&cfg.Queues.IntakeStream, "CONTACTD_QUEUES_INTAKE_STREAM")
	setStr(&cfg.Queues.NotifyStream, "CONTACTD_QUEUES_NOTIFY_STREAM")
	setStr(&cfg.Queues.Group, "CONTACTD_QUEUES_GROUP")
	setStr(&cfg.Queues.Consumer, "CONTACTD_QUEUES_CONSUMER")
	setStr(&cfg.Queues.EventChannel, "CONTACTD_QUEUES_EVENT_CHANNEL")
	setDuration(&cfg.Queues.ReclaimIdle, "CONTACTD_QUEUES_RECLAIM_IDLE")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CONTACTD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CONTACTD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CONTACTD_S3_REGION")
	setStr(&cfg.S3.Bucket, "CONTACTD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CONTACTD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CONTACTD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CONTACTD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CONTACTD_S3_FORCE_PATH_STYLE")

	// ── Turnstile ──
	setStr(&cfg.Turnstile.VerifyURL, "CONTACTD_TURNSTILE_VERIFY_URL")
	setDuration(&cfg.Turnstile.Timeout, "CONTACTD_TURNSTILE_TIMEOUT")

	// ── Classifier ──
	setBool(&cfg.Classifier.Enabled, "CONTACTD_CLASSIFIER_ENABLED")
	setStr(&cfg.Classifier.BaseURL, "CONTACTD_CLASSIFIER_BASE_URL")
	setStr(&cfg.Classifier.APIKey, "CONTACTD_CLASSIFIER_API_KEY")
	setStr(&cfg.Classifier.Model, "CONTACTD_CLASSIFIER_MODEL")
	setDuration(&cfg.Classifier.Timeout, "CONTACTD_CLASSIFIER_TIMEOUT")

	// ── Notification channels ──
	setBool(&cfg.Notify.Email.Enabled, "CONTACTD_NOTIFY_EMAIL_ENABLED")
	setStr(&cfg.Notify.Email.Region, "CONTACTD_NOTIFY_EMAIL_REGION")
	setStr(&cfg.Notify.Email.Sender, "CONTACTD_NOTIFY_EMAIL_SENDER")
	setStr(&cfg.Notify.Email.Recipient, "CONTACTD_NOTIFY_EMAIL_RECIPIENT")
	setBool(&cfg.Notify.Discord.Enabled, "CONTACTD_NOTIFY_DISCORD_ENABLED")
	setStr(&cfg.Notify.Discord.WebhookURL, "CONTACTD_NOTIFY_DISCORD_WEBHOOK_URL")
	setBool(&cfg.Notify.Telegram.Enabled, "CONTACTD_NOTIFY_TELEGRAM_ENABLED")
	setStr(&cfg.Notify.Telegram.Token, "CONTACTD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.Telegram.ChatID, "CONTACTD_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Admin ──
	setStr(&cfg.Admin.APIKey, "CONTACTD_ADMIN_API_KEY")
	setStr(&cfg.Admin.JWKSURL, "CONTACTD_ADMIN_JWKS_URL")
	setStr(&cfg.Admin.Issuer, "CONTACTD_ADMIN_ISSUER")
	setStr(&cfg.Admin.Audience, "CONTACTD_ADMIN_AUDIENCE")

	// ── Top-level ──
	setStr(&cfg.Mode, "CONTACTD_MODE")
	setStr(&cfg.LogLevel, "CONTACTD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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
