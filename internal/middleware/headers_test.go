package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	t.Parallel()

	cfg := HeadersConfig{
		RequestSet:     map[string]string{"X-Set": "set"},
		RequestAdd:     map[string]string{"X-Add": "added"},
		RequestRemove:  []string{"X-Remove"},
		ResponseSet:    map[string]string{"X-Frame-Options": "DENY"},
		ResponseAdd:    map[string]string{"Vary": "Accept"},
		ResponseRemove: []string{"Server"},
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", "leaky")
				w.WriteHeader(http.StatusAccepted)
			},
		},
		{
			name: "body only",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", "leaky")
				_, _ = w.Write([]byte("x"))
			},
		},
		{
			name: "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", "leaky")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := Headers(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "set", r.Header.Get("X-Set"))
				assert.Equal(t, []string{"original", "added"}, r.Header.Values("X-Add"))
				assert.Empty(t, r.Header.Get("X-Remove"))
				tt.handler(w, r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Add", "original")
			req.Header.Set("X-Remove", "gone")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, []string{"Accept"}, w.Header().Values("Vary"))
			assert.Empty(t, w.Header().Get("Server"))
		})
	}
}

func TestNoCache(t *testing.T) {
	t.Parallel()

	w := serve(NoCache()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write([]byte("x"))
	})), http.MethodGet, "/")

	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
}
