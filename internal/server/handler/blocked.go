package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jscomlabs/contactd/internal/domain"
)

// BlockedHandler manages the blocked-IP list.
type BlockedHandler struct {
	store  domain.BlocklistStore
	logger *slog.Logger
}

// NewBlockedHandler creates a BlockedHandler backed by the given store.
func NewBlockedHandler(store domain.BlocklistStore, logger *slog.Logger) *BlockedHandler {
	return &BlockedHandler{
		store:  store,
		logger: logHandler(logger, "blocked"),
	}
}

// blockRequest is the body of a block operation.
type blockRequest struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// blockedListResponse wraps the full blocklist.
type blockedListResponse struct {
	BlockedContacts []domain.BlockedContact `json:"blocked_contacts"`
	Count           int                     `json:"count"`
}

// blockedResponse wraps a newly created block record.
type blockedResponse struct {
	BlockedContact domain.BlockedContact `json:"blocked_contact"`
	Message        string                `json:"message"`
}

// ListBlocked returns every live blocklist entry.
// GET /admin/blocked
func (h *BlockedHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list blocked failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if entries == nil {
		entries = []domain.BlockedContact{}
	}

	writeData(w, http.StatusOK, blockedListResponse{
		BlockedContacts: entries,
		Count:           len(entries),
	})
}

// BlockContact adds an IP to the blocklist. A duplicate IP is a conflict.
// POST /admin/blocked
func (h *BlockedHandler) BlockContact(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.IPAddress == "" {
		writeError(w, http.StatusBadRequest, "ip_address is a required field")
		return
	}

	entry := domain.BlockedContact{
		ID:        uuid.NewString(),
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		IsBlocked: true,
	}

	if err := h.store.Block(r.Context(), entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("IP address is already blocked: %s", req.IPAddress))
			return
		}
		h.logger.ErrorContext(r.Context(), "block contact failed",
			slog.String("ip", req.IPAddress),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(r.Context(), "contact blocked",
		slog.String("id", entry.ID),
		slog.String("ip", entry.IPAddress),
	)
	writeData(w, http.StatusCreated, blockedResponse{
		BlockedContact: entry,
		Message:        "Contact blocked successfully",
	})
}

// UnblockContact deletes a blocklist entry by record id.
// DELETE /admin/blocked/{id}
func (h *BlockedHandler) UnblockContact(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.store.Unblock(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Blocked contact not found: %s", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "unblock contact failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(r.Context(), "contact unblocked", slog.String("id", id))
	writeData(w, http.StatusOK, map[string]string{"message": "Contact unblocked successfully"})
}
