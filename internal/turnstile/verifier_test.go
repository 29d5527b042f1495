package turnstile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerify_Success(t *testing.T) {
	var got verifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, map[string]string{"example.com": "secret-1"}, time.Second, testLogger())

	ok := v.Verify(context.Background(), "tok-abc", "203.0.113.9", "example.com")
	assert.True(t, ok)
	assert.Equal(t, "secret-1", got.Secret)
	assert.Equal(t, "tok-abc", got.Response)
	assert.Equal(t, "203.0.113.9", got.RemoteIP)
}

func TestVerify_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":     false,
			"error-codes": []string{"invalid-input-response"},
		})
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, map[string]string{"example.com": "secret-1"}, time.Second, testLogger())
	assert.False(t, v.Verify(context.Background(), "bad-token", "203.0.113.9", "example.com"))
}

func TestVerify_UnknownSite(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, map[string]string{"example.com": "secret-1"}, time.Second, testLogger())
	assert.False(t, v.Verify(context.Background(), "tok", "203.0.113.9", "other.com"))
	assert.False(t, called, "unknown site must not reach the verify endpoint")
}

func TestVerify_EmptyToken(t *testing.T) {
	v := NewVerifier("http://127.0.0.1:1", map[string]string{"example.com": "s"}, time.Second, testLogger())
	assert.False(t, v.Verify(context.Background(), "", "203.0.113.9", "example.com"))
}

func TestVerify_NetworkErrorFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	v := NewVerifier(srv.URL, map[string]string{"example.com": "s"}, time.Second, testLogger())
	assert.False(t, v.Verify(context.Background(), "tok", "203.0.113.9", "example.com"))
}
