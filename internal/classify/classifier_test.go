package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscomlabs/contactd/internal/domain"
)

func completionReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(reply)
	return string(b)
}

func TestClassify_Success(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionReply(`{"contact_category":"consulting_request","contact_priority":"high","confidence_score":0.92}`)))
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1", "test-key", "gpt-4.1", time.Second)

	result, err := c.Classify(context.Background(), "I'd like to hire you for a project")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryConsultingRequest, result.Category)
	assert.Equal(t, domain.PriorityHigh, result.Priority)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4.1", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "I'd like to hire you")
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestClassify_InvalidCategoryRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply(`{"contact_category":"nonsense","contact_priority":"high","confidence_score":0.5}`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-4.1", time.Second)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown contact category")
}

func TestClassify_ConfidenceOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply(`{"contact_category":"spam","contact_priority":"low","confidence_score":1.4}`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-4.1", time.Second)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestClassify_NonJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply(`sorry, I cannot help with that`)))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-4.1", time.Second)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
}

func TestClassify_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-4.1", time.Second)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
