package postgres

import (
	"encoding/base64"
	"encoding/json"

	"github.com/jscomlabs/contactd/internal/domain"
)

// cursor is the continuation key for message listing: the (ts, id) pair of
// the last row on the previous page. It travels to clients as an opaque
// base64(JSON) token.
type cursor struct {
	Timestamp int64  `json:"ts"`
	ID        string `json:"id"`
}

// encodeCursor serializes a cursor to its opaque token form.
func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(data)
}

// decodeCursor parses an opaque token back into a cursor. A malformed token
// maps to domain.ErrInvalidCursor so callers can surface a 400.
func decodeCursor(token string) (cursor, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, domain.ErrInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor{}, domain.ErrInvalidCursor
	}
	if c.ID == "" {
		return cursor{}, domain.ErrInvalidCursor
	}
	return c, nil
}
