package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jscomlabs/contactd/internal/domain"
)

// DiscordChannel delivers notifications via a Discord webhook.
type DiscordChannel struct {
	enabled    bool
	webhookURL string
	client     *http.Client
}

var _ Channel = (*DiscordChannel)(nil)

// NewDiscordChannel creates a DiscordChannel for the given webhook URL. It
// uses a default HTTP client with a 10-second timeout.
func NewDiscordChannel(enabled bool, webhookURL string) *DiscordChannel {
	return &DiscordChannel{
		enabled:    enabled,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled requires both the feature flag and a webhook URL.
func (d *DiscordChannel) Enabled() bool {
	return d.enabled && d.webhookURL != ""
}

// Name returns the channel identifier.
func (d *DiscordChannel) Name() string {
	return "discord"
}

// Send posts the rendered envelope to the Discord webhook.
func (d *DiscordChannel) Send(ctx context.Context, env domain.Envelope) Result {
	payload := map[string]string{
		"content": renderText(env),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failed(d.Name(), "failed to marshal webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return failed(d.Name(), "failed to create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return failed(d.Name(), "failed to reach webhook", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return failed(d.Name(), "webhook rejected message",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}

	return succeeded(d.Name(), fmt.Sprintf("discord notification sent, status %d", resp.StatusCode))
}
