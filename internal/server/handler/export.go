package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jscomlabs/contactd/internal/domain"
)

// exportPageSize is the store page size used when draining the archive.
const exportPageSize = 100

// exportMaxMessages caps a single export so a runaway archive cannot pin the
// handler indefinitely.
const exportMaxMessages = 10000

// MessageExporter bundles archived messages into a single object in blob
// storage and returns its key.
type MessageExporter interface {
	ExportMessages(ctx context.Context, messages []domain.ContactMessage, now time.Time) (string, error)
}

// ExportHandler serves on-demand archive snapshots.
type ExportHandler struct {
	store    domain.MessageStore
	exporter MessageExporter
	logger   *slog.Logger
}

// NewExportHandler creates an ExportHandler. The exporter may be nil when
// object storage is not configured; requests then fail with 503.
func NewExportHandler(store domain.MessageStore, exporter MessageExporter, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		store:    store,
		exporter: exporter,
		logger:   logHandler(logger, "export"),
	}
}

// Export drains the message archive newest-first and writes one NDJSON
// snapshot object, responding with its key and the message count.
// POST /admin/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	ctx := r.Context()

	var messages []domain.ContactMessage
	cursor := ""
	for len(messages) < exportMaxMessages {
		page, err := h.store.List(ctx, domain.MessageListOpts{
			Limit:  exportPageSize,
			Cursor: cursor,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "export listing failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		messages = append(messages, page.Messages...)
		if page.NextToken == "" {
			break
		}
		cursor = page.NextToken
	}

	key, err := h.exporter.ExportMessages(ctx, messages, time.Now().UTC())
	if err != nil {
		h.logger.ErrorContext(ctx, "export upload failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(ctx, "archive exported",
		slog.String("key", key),
		slog.Int("count", len(messages)),
	)
	writeData(w, http.StatusOK, map[string]any{
		"key":   key,
		"count": len(messages),
	})
}
