package postgres

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscomlabs/contactd/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := cursor{Timestamp: 1756700000, ID: "9e3a2f1c"}

	token := encodeCursor(in)
	out, err := decodeCursor(token)

	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeCursorRejectsGarbageBase64(t *testing.T) {
	_, err := decodeCursor("%%%not-base64%%%")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestDecodeCursorRejectsNonJSON(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("plain text"))
	_, err := decodeCursor(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestDecodeCursorRejectsMissingID(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"ts":1756700000}`))
	_, err := decodeCursor(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}
