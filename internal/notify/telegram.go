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

// TelegramChannel delivers notifications via the Telegram Bot API.
type TelegramChannel struct {
	enabled bool
	token   string
	chatID  string
	client  *http.Client

	// baseURL is overridable for tests; empty means the public API.
	baseURL string
}

var _ Channel = (*TelegramChannel)(nil)

// NewTelegramChannel creates a TelegramChannel for the given bot token and
// chat ID. It uses a default HTTP client with a 10-second timeout.
func NewTelegramChannel(enabled bool, token, chatID string) *TelegramChannel {
	return &TelegramChannel{
		enabled: enabled,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled requires the feature flag, a bot token, and a chat ID.
func (t *TelegramChannel) Enabled() bool {
	return t.enabled && t.token != "" && t.chatID != ""
}

// Name returns the channel identifier.
func (t *TelegramChannel) Name() string {
	return "telegram"
}

// Send posts the rendered envelope to the configured chat using the
// sendMessage API.
func (t *TelegramChannel) Send(ctx context.Context, env domain.Envelope) Result {
	base := t.baseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.token)

	// Telegram's Markdown parse mode accepts the same *bold* marker as the
	// shared renderer's **bold** in practice, but single asterisks are the
	// documented form, so the rendered text is converted.
	text := bytes.ReplaceAll([]byte(renderText(env)), []byte("**"), []byte("*"))

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       string(text),
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failed(t.Name(), "failed to marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failed(t.Name(), "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return failed(t.Name(), "failed to reach telegram api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return failed(t.Name(), "telegram api rejected message",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}

	return succeeded(t.Name(), "telegram notification sent")
}
