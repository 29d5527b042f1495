// Package config defines the top-level configuration for the contact pipeline
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CONTACTD_* environment
// variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Queues     QueuesConfig     `toml:"queues"`
	S3         S3Config         `toml:"s3"`
	Turnstile  TurnstileConfig  `toml:"turnstile"`
	Classifier ClassifierConfig `toml:"classifier"`
	Notify     NotifyConfig     `toml:"notify"`
	Admin      AdminConfig      `toml:"admin"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// PostgresConfig holds PostgreSQL connection parameters for the archive and
// blocklist stores.
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

// RedisConfig holds Redis connection parameters for the queues and the admin
// event feed.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// QueuesConfig names the intake and notify streams and the consumer-group
// identity of this process.
type QueuesConfig struct {
	IntakeStream string   `toml:"intake_stream"`
	NotifyStream string   `toml:"notify_stream"`
	Group        string   `toml:"group"`
	Consumer     string   `toml:"consumer"`
	EventChannel string   `toml:"event_channel"`
	ReclaimIdle  duration `toml:"reclaim_idle"`
}

// S3Config holds object-storage parameters for the raw payload archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TurnstileConfig holds the human-verification provider parameters. Secrets
// maps a site domain to its Turnstile secret key; submissions naming an
// unknown site fail verification.
type TurnstileConfig struct {
	VerifyURL string            `toml:"verify_url"`
	Secrets   map[string]string `toml:"secrets"`
	Timeout   duration          `toml:"timeout"`
}

// ClassifierConfig holds the LLM classifier parameters. The classifier is an
// optional enrichment; when disabled the filter forwards messages unlabeled.
type ClassifierConfig struct {
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// NotifyConfig holds per-channel notification parameters.
type NotifyConfig struct {
	Email    EmailChannelConfig    `toml:"email"`
	Discord  DiscordChannelConfig  `toml:"discord"`
	Telegram TelegramChannelConfig `toml:"telegram"`
}

// EmailChannelConfig configures the SES email channel.
type EmailChannelConfig struct {
	Enabled   bool   `toml:"enabled"`
	Region    string `toml:"region"`
	Sender    string `toml:"sender"`
	Recipient string `toml:"recipient"`
}

// DiscordChannelConfig configures the Discord webhook channel.
type DiscordChannelConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
}

// TelegramChannelConfig configures the Telegram bot channel.
type TelegramChannelConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  string `toml:"chat_id"`
}

// AdminConfig holds the admin API's authentication parameters: the static
// x-api-key gate and the identity provider used for bearer-token validation.
type AdminConfig struct {
	APIKey   string `toml:"api_key"`
	JWKSURL  string `toml:"jwks_url"`
	Issuer   string `toml:"issuer"`
	Audience string `toml:"audience"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
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
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "contactd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Queues: QueuesConfig{
			IntakeStream: "contact:intake",
			NotifyStream: "contact:notify",
			Group:        "contactd",
			Consumer:     "contactd-1",
			EventChannel: "contact:events",
			ReclaimIdle:  duration{5 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "contactd-archive",
			ForcePathStyle: true,
		},
		Turnstile: TurnstileConfig{
			VerifyURL: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
			Secrets:   map[string]string{},
			Timeout:   duration{5 * time.Second},
		},
		Classifier: ClassifierConfig{
			Enabled: false,
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4.1",
			Timeout: duration{20 * time.Second},
		},
		Notify: NotifyConfig{
			Email: EmailChannelConfig{
				Enabled: true,
				Region:  "us-west-2",
			},
			Discord:  DiscordChannelConfig{Enabled: false},
			Telegram: TelegramChannelConfig{Enabled: false},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"listener": true,
	"filter":   true,
	"notifier": true,
	"admin":    true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: listener, filter, notifier, admin, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	mode := strings.ToLower(c.Mode)
	needsServer := mode == "listener" || mode == "admin" || mode == "full"
	needsPostgres := mode == "filter" || mode == "admin" || mode == "full"
	needsRedis := mode != "admin" // the admin event feed degrades gracefully

	if needsServer {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if needsPostgres {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if needsRedis {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Queues.IntakeStream == "" {
		errs = append(errs, "queues: intake_stream must not be empty")
	}
	if c.Queues.NotifyStream == "" {
		errs = append(errs, "queues: notify_stream must not be empty")
	}
	if c.Queues.Group == "" {
		errs = append(errs, "queues: group must not be empty")
	}
	if c.Queues.Consumer == "" {
		errs = append(errs, "queues: consumer must not be empty")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if mode == "listener" || mode == "full" {
		if c.Turnstile.VerifyURL == "" {
			errs = append(errs, "turnstile: verify_url must not be empty")
		}
		if len(c.Turnstile.Secrets) == 0 {
			errs = append(errs, "turnstile: at least one site secret must be configured")
		}
	}

	if c.Classifier.Enabled {
		if c.Classifier.BaseURL == "" {
			errs = append(errs, "classifier: base_url must not be empty when enabled")
		}
		if c.Classifier.Model == "" {
			errs = append(errs, "classifier: model must not be empty when enabled")
		}
	}

	if c.Notify.Email.Enabled {
		if c.Notify.Email.Sender == "" {
			errs = append(errs, "notify.email: sender must not be empty when enabled")
		}
		if c.Notify.Email.Recipient == "" {
			errs = append(errs, "notify.email: recipient must not be empty when enabled")
		}
		if c.Notify.Email.Region == "" {
			errs = append(errs, "notify.email: region must not be empty when enabled")
		}
	}

	if mode == "admin" || mode == "full" {
		if c.Admin.JWKSURL == "" && c.Admin.APIKey == "" {
			errs = append(errs, "admin: jwks_url or api_key must be set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
