package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noFlushWriter struct {
	http.ResponseWriter
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("progress", map[string]string{"message": "Uploading the file..."}))
	sse.WriteError("Failed to Analyse resume")
	sse.WriteComplete("abc", "/resume/abc", "Analysis saved. Redirecting...")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t,
		"event: progress\ndata: {\"message\":\"Uploading the file...\"}\n\n"+
			"event: error\ndata: {\"error\":\"Failed to Analyse resume\"}\n\n"+
			"event: complete\ndata: {\"id\":\"abc\",\"redirect\":\"/resume/abc\",\"status\":\"Analysis saved. Redirecting...\"}\n\n",
		rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSSEWriter_RequiresFlusher(t *testing.T) {
	_, err := NewSSEWriter(noFlushWriter{httptest.NewRecorder()})
	assert.Error(t, err)
}
