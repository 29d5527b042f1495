package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordChannel_Enabled(t *testing.T) {
	assert.True(t, NewDiscordChannel(true, "https://discord.example/webhook").Enabled())
	assert.False(t, NewDiscordChannel(true, "").Enabled())
	assert.False(t, NewDiscordChannel(false, "https://discord.example/webhook").Enabled())
}

func TestDiscordChannel_SendSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewDiscordChannel(true, srv.URL)
	env := mustEnvelope(t, `{"contact_message":"hi","contact_type":"standard","contact_name":"Jane"}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)
	assert.Equal(t, "discord", res.Channel)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Contains(t, payload["content"], "Jane")
	assert.Contains(t, payload["content"], "hi")
}

func TestDiscordChannel_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ch := NewDiscordChannel(true, srv.URL)
	env := mustEnvelope(t, `{"contact_message":"hi"}`)

	res := ch.Send(context.Background(), env)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "429")
}

func TestDiscordChannel_SendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	ch := NewDiscordChannel(true, srv.URL)
	env := mustEnvelope(t, `{"contact_message":"hi"}`)

	res := ch.Send(context.Background(), env)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestTelegramChannel_Enabled(t *testing.T) {
	assert.True(t, NewTelegramChannel(true, "token", "chat").Enabled())
	assert.False(t, NewTelegramChannel(true, "", "chat").Enabled())
	assert.False(t, NewTelegramChannel(true, "token", "").Enabled())
	assert.False(t, NewTelegramChannel(false, "token", "chat").Enabled())
}

func TestTelegramChannel_Send(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(true, "bot-token", "42")
	ch.baseURL = srv.URL
	env := mustEnvelope(t, `{"contact_message":"hi","contact_type":"consulting","company_name":"Acme","industry":"Tech"}`)

	res := ch.Send(context.Background(), env)
	require.True(t, res.Success)
	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "42", gotPayload["chat_id"])
	assert.Contains(t, gotPayload["text"], "Acme")
	assert.Contains(t, gotPayload["text"], "Tech")
}
