package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jscomlabs/contactd/internal/domain"
)

// Archiver writes raw intake payloads to object storage so the original
// submission survives even if downstream processing alters or drops fields.
type Archiver struct {
	writer *Writer
}

// NewArchiver creates an Archiver backed by the given writer.
func NewArchiver(writer *Writer) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveRaw stores the verbatim queue payload under
// intake/<yyyy-mm-dd>/<id>.json, keyed by the message's archive ID and the
// day it was received.
func (a *Archiver) ArchiveRaw(ctx context.Context, id string, receivedAt time.Time, payload []byte) error {
	key := fmt.Sprintf("intake/%s/%s.json", receivedAt.UTC().Format("2006-01-02"), id)
	if err := a.writer.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("archive raw payload %s: %w", id, err)
	}
	return nil
}

// ExportMessages bundles a set of archived messages into a single
// newline-delimited JSON object and uploads it with the multipart uploader.
// Returns the object key of the export.
func (a *Archiver) ExportMessages(ctx context.Context, messages []domain.ContactMessage, now time.Time) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("export: no messages to export")
	}

	var buf bytes.Buffer
	for _, m := range messages {
		line, err := json.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("export: encode message %s: %w", m.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := fmt.Sprintf("exports/%s/messages-%d.ndjson", now.UTC().Format("2006-01-02"), now.UnixMilli())
	if err := a.writer.PutMultipart(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return "", err
	}
	return key, nil
}
