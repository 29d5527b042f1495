// Package handler implements the admin HTTP API. Every response uses the
// same envelope: {"status": <code>, "data": ..., "error": ...}, with the
// status field mirroring the HTTP status code.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jscomlabs/contactd/internal/domain"
)

// apiResponse is the admin API response envelope.
type apiResponse struct {
	Status int    `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// writeData sends a successful envelope with the given payload.
func writeData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, apiResponse{Status: status, Data: data})
}

// writeError sends an error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, apiResponse{Status: status, Error: msg})
}

func writeEnvelope(w http.ResponseWriter, resp apiResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, `{"status":500,"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	w.Write(body)
}

// parseMessageListOpts extracts pagination and filter parameters from the
// query string. Defaults: limit=50, clamped to [1,100].
func parseMessageListOpts(r *http.Request) domain.MessageListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	return domain.MessageListOpts{
		Limit:       limit,
		Cursor:      q.Get("next_token"),
		ContactType: domain.ContactKind(q.Get("contact_type")),
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
