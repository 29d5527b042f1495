// Package listener accepts contact form submissions over HTTP, verifies the
// Turnstile token, and publishes accepted submissions to the intake queue.
package listener

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/jscomlabs/contactd/internal/domain"
)

// maxBodySize caps submission bodies; contact forms have no business sending
// more than this.
const maxBodySize = 64 * 1024

// TokenVerifier validates a Turnstile token for a site.
type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP, site string) bool
}

// submission is the JSON body of a contact form POST.
type submission struct {
	TurnstileToken    string `json:"turnstile_token"`
	TurnstileSite     string `json:"turnstile_site"`
	ContactEmail      string `json:"contact_email"`
	ContactMessage    string `json:"contact_message"`
	ContactName       string `json:"contact_name"`
	ConsultingContact bool   `json:"consulting_contact"`
	CompanyName       string `json:"company_name"`
	Industry          string `json:"industry"`
}

// Handler serves the public form submission endpoint.
type Handler struct {
	verifier TokenVerifier
	queue    domain.Queue
	logger   *slog.Logger
}

// NewHandler creates a listener Handler publishing to the intake queue.
func NewHandler(verifier TokenVerifier, queue domain.Queue, logger *slog.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		queue:    queue,
		logger:   logger.With(slog.String("component", "listener")),
	}
}

// Submit handles POST /v1/contact.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := decodeBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ip := clientIP(r)
	userAgent := r.UserAgent()

	if payload.TurnstileToken == "" {
		h.logger.WarnContext(ctx, "turnstile token missing", slog.String("ip", ip))
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Security verification required"})
		return
	}

	if !h.verifier.Verify(ctx, payload.TurnstileToken, ip, payload.TurnstileSite) {
		h.logger.WarnContext(ctx, "turnstile validation failed", slog.String("ip", ip))
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Security verification failed"})
		return
	}

	if payload.ContactMessage == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_message is a required field"})
		return
	}

	msg := domain.IntakeMessage{
		ContactEmail:   payload.ContactEmail,
		ContactMessage: payload.ContactMessage,
		ContactName:    payload.ContactName,
		IPAddress:      ip,
		UserAgent:      userAgent,
		ContactType:    domain.KindStandard,
	}
	if payload.ConsultingContact {
		msg.ContactType = domain.KindConsulting
		msg.CompanyName = payload.CompanyName
		msg.Industry = payload.Industry
	}

	body, err := json.Marshal(msg)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.queue.Publish(ctx, body); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish intake message",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.logger.InfoContext(ctx, "submission accepted",
		slog.String("contact_type", string(msg.ContactType)),
		slog.String("ip", ip),
	)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message Received. Currently Processing"})
}

// decodeBody parses the request body as JSON, accepting a base64-encoded
// body as a fallback for proxies that re-encode binary payloads.
func decodeBody(r *http.Request) (submission, error) {
	var s submission

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return s, err
	}

	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	decoded, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if decErr != nil {
		return s, decErr
	}
	if err := json.Unmarshal(decoded, &s); err != nil {
		return s, err
	}
	return s, nil
}

// clientIP extracts the originating client address, preferring the first
// X-Forwarded-For entry set by the fronting proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
