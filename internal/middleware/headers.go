package middleware

import (
	"net/http"
)

// HeadersConfig contains header manipulation configuration.
type HeadersConfig struct {
	RequestSet     map[string]string
	RequestAdd     map[string]string
	RequestRemove  []string
	ResponseSet    map[string]string
	ResponseAdd    map[string]string
	ResponseRemove []string
}

// Headers returns a middleware that edits request headers before the
// handler runs and response headers when the response starts.
func Headers(cfg HeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, value := range cfg.RequestSet {
				r.Header.Set(key, value)
			}
			for key, value := range cfg.RequestAdd {
				r.Header.Add(key, value)
			}
			for _, key := range cfg.RequestRemove {
				r.Header.Del(key)
			}

			rw := &headerResponseWriter{ResponseWriter: w, cfg: &cfg}
			next.ServeHTTP(rw, r)
			rw.apply()
		})
	}
}

// noCacheHeaders are the response headers set by NoCache.
var noCacheHeaders = map[string]string{
	"Cache-Control": "no-store, no-cache, must-revalidate, max-age=0",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// NoCache returns a middleware that marks responses as not cacheable.
func NoCache() Middleware {
	return Headers(HeadersConfig{ResponseSet: noCacheHeaders})
}

// headerResponseWriter applies response header edits once, right
// before the status line is written.
type headerResponseWriter struct {
	http.ResponseWriter
	cfg     *HeadersConfig
	applied bool
}

// WriteHeader applies the edits before writing the status.
func (rw *headerResponseWriter) WriteHeader(code int) {
	rw.apply()
	rw.ResponseWriter.WriteHeader(code)
}

// Write applies the edits before the first body write.
func (rw *headerResponseWriter) Write(b []byte) (int, error) {
	rw.apply()
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface for streaming support.
func (rw *headerResponseWriter) Flush() {
	rw.apply()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *headerResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *headerResponseWriter) apply() {
	if rw.applied {
		return
	}
	rw.applied = true

	h := rw.ResponseWriter.Header()
	for key, value := range rw.cfg.ResponseSet {
		h.Set(key, value)
	}
	for key, value := range rw.cfg.ResponseAdd {
		h.Add(key, value)
	}
	for _, key := range rw.cfg.ResponseRemove {
		h.Del(key)
	}
}
