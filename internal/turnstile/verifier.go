// Package turnstile validates Cloudflare Turnstile tokens against the
// siteverify API. Secrets are keyed per site so one deployment can front
// multiple domains.
package turnstile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultVerifyURL is Cloudflare's production siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks Turnstile response tokens. Any failure, including network
// errors and unknown sites, is treated as a failed verification; the caller
// rejects the request rather than letting an outage open the form to bots.
type Verifier struct {
	verifyURL string
	secrets   map[string]string // site domain -> secret key
	client    *http.Client
	logger    *slog.Logger
}

// NewVerifier creates a Verifier with the given per-site secret map. timeout
// bounds each siteverify call; zero means 5 seconds.
func NewVerifier(verifyURL string, secrets map[string]string, timeout time.Duration, logger *slog.Logger) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Verifier{
		verifyURL: verifyURL,
		secrets:   secrets,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With(slog.String("component", "turnstile")),
	}
}

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify reports whether the token is valid for the given site. A missing
// token, an unknown site, or any transport error all yield false.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP, site string) bool {
	if token == "" {
		return false
	}

	secret, ok := v.secrets[site]
	if !ok {
		v.logger.WarnContext(ctx, "unknown turnstile site",
			slog.String("site", site),
		)
		return false
	}

	body, err := json.Marshal(verifyRequest{
		Secret:   secret,
		Response: token,
		RemoteIP: remoteIP,
	})
	if err != nil {
		v.logger.ErrorContext(ctx, "failed to encode siteverify request",
			slog.String("error", err.Error()),
		)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.ErrorContext(ctx, "siteverify request failed",
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.ErrorContext(ctx, "failed to decode siteverify response",
			slog.String("error", err.Error()),
		)
		return false
	}

	if !result.Success {
		v.logger.WarnContext(ctx, "turnstile validation failed",
			slog.String("site", site),
			slog.String("remote_ip", remoteIP),
			slog.String("error_codes", fmt.Sprintf("%v", result.ErrorCodes)),
		)
	}
	return result.Success
}
