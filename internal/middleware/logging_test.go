package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := observability.NewLoggerWithWriter(observability.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	h := Logging(logger, nil)(RequestIDWithGenerator(func() string { return "rid-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("hello"))
		}),
	))

	req := httptest.NewRequest(http.MethodPost, "/users?x=1", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req = req.WithContext(observability.ContextWithRoute(req.Context(), "users.create"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "http request", line["message"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/users", line["path"])
	assert.Equal(t, "x=1", line["query"])
	assert.Equal(t, "users.create", line["route"])
	assert.InDelta(t, 201, line["status"], 0)
	assert.InDelta(t, 5, line["size"], 0)
	assert.Equal(t, "10.0.0.1", line["client_ip"])
	assert.Equal(t, "rid-1", line["request_id"])
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	_, _ = rw.Write([]byte("a"))
	rw.WriteHeader(http.StatusTeapot)
	rw.Flush()

	assert.Equal(t, http.StatusOK, rw.status)
	assert.Equal(t, 1, rw.size)
	assert.Same(t, rec, rw.Unwrap())
	assert.True(t, rec.Flushed)
}
