package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateFullMode(t *testing.T) {
	cfg := Defaults()
	cfg.Turnstile.Secrets = map[string]string{"example.com": "secret"}
	cfg.Admin.APIKey = "test-key"
	cfg.Notify.Email.Sender = "noreply@example.com"
	cfg.Notify.Email.Recipient = "inbox@example.com"

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "turbo"`)
}

func TestValidateRequiresTurnstileSecretsForListener(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "listener"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one site secret")
}

func TestValidateNotifierSkipsPostgresChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "notifier"
	cfg.Postgres = PostgresConfig{}
	cfg.Notify.Email.Sender = "noreply@example.com"
	cfg.Notify.Email.Recipient = "inbox@example.com"

	require.NoError(t, cfg.Validate())
}

func TestValidateEmailChannelNeedsAddresses(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "notifier"
	cfg.Notify.Email.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.email: sender")
	assert.Contains(t, err.Error(), "notify.email: recipient")
}

func TestValidateAdminNeedsSomeAuth(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "admin"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwks_url or api_key")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "filter"
log_level = "debug"

[server]
port = 9090

[queues]
intake_stream = "custom:intake"
reclaim_idle = "90s"

[turnstile]
[turnstile.secrets]
"example.com" = "ts-secret"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "filter", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "custom:intake", cfg.Queues.IntakeStream)
	assert.Equal(t, 90*time.Second, cfg.Queues.ReclaimIdle.Duration)
	// Untouched fields keep their defaults.
	assert.Equal(t, "contact:notify", cfg.Queues.NotifyStream)
	assert.Equal(t, "ts-secret", cfg.Turnstile.Secrets["example.com"])
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"filter\"\n"), 0o600))

	t.Setenv("CONTACTD_MODE", "notifier")
	t.Setenv("CONTACTD_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CONTACTD_NOTIFY_DISCORD_ENABLED", "true")
	t.Setenv("CONTACTD_QUEUES_RECLAIM_IDLE", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "notifier", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Notify.Discord.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Queues.ReclaimIdle.Duration)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Classifier.APIKey = "sk-live"
	cfg.Admin.APIKey = "admin-key"
	cfg.Turnstile.Secrets = map[string]string{"example.com": "ts-secret"}

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Classifier.APIKey)
	assert.Equal(t, "***", out.Admin.APIKey)
	assert.Equal(t, "***", out.Turnstile.Secrets["example.com"])

	// Original is untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, "ts-secret", cfg.Turnstile.Secrets["example.com"])
}

func TestRedactedConfigLeavesEmptySecretsEmpty(t *testing.T) {
	cfg := Defaults()
	out := RedactedConfig(&cfg)
	assert.Empty(t, out.Postgres.Password)
	assert.Empty(t, out.Redis.Password)
}
