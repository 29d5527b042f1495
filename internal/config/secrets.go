package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Classifier.APIKey)
	redact(&out.Notify.Discord.WebhookURL)
	redact(&out.Notify.Telegram.Token)
	redact(&out.Admin.APIKey)

	// Copy the secrets map so callers cannot mutate the original through the
	// redacted copy; every value is a secret key.
	if cfg.Turnstile.Secrets != nil {
		out.Turnstile.Secrets = make(map[string]string, len(cfg.Turnstile.Secrets))
		for site := range cfg.Turnstile.Secrets {
			out.Turnstile.Secrets[site] = redacted
		}
	}

	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
