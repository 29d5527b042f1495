package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jscomlabs/contactd/internal/domain"
)

// MessageHandler serves read-only access to the message archive.
type MessageHandler struct {
	store  domain.MessageStore
	logger *slog.Logger
}

// NewMessageHandler creates a MessageHandler backed by the given store.
func NewMessageHandler(store domain.MessageStore, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		store:  store,
		logger: logHandler(logger, "messages"),
	}
}

// ListMessages returns one page of archived messages, newest first.
// GET /admin/messages?limit=&next_token=&contact_type=
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	opts := parseMessageListOpts(r)

	if opts.ContactType != "" && !domain.ValidKind(opts.ContactType) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid contact_type: %s", opts.ContactType))
		return
	}

	page, err := h.store.List(r.Context(), opts)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "Invalid pagination token")
			return
		}
		h.logger.ErrorContext(r.Context(), "list messages failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeData(w, http.StatusOK, page)
}

// GetMessage returns one archived message by id.
// GET /admin/messages/{id}
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	msg, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Message not found: %s", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "get message failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeData(w, http.StatusOK, msg)
}

// GetStats returns archive and blocklist counters.
// GET /admin/stats
func (h *MessageHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats query failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeData(w, http.StatusOK, stats)
}
