package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// ErrBodyTooLarge is returned by request body reads past the limit.
var ErrBodyTooLarge = errors.New("request body size exceeded")

// BodyLimit returns a middleware that limits the request body size.
// A declared Content-Length above the limit is answered with 413
// before the handler runs; otherwise reads past the limit fail with
// ErrBodyTooLarge.
func BodyLimit(maxSize int64, logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				logger.Warn("request body too large",
					observability.Int64("content_length", r.ContentLength),
					observability.Int64("max_size", maxSize),
					observability.String("path", r.URL.Path),
				)

				GetMiddlewareMetrics().bodyLimitRejected.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = io.WriteString(w, ErrRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &limitedReadCloser{ReadCloser: r.Body, remaining: maxSize}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitedReadCloser allows reading at most remaining bytes.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

// Read reads up to len(p) bytes into p, respecting the remaining limit.
func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrBodyTooLarge
	}

	if l.remaining <= 0 {
		// The limit is reached; only EOF is acceptable now.
		var extra [1]byte
		n, err := l.ReadCloser.Read(extra[:])
		if n > 0 {
			l.exceeded = true
			GetMiddlewareMetrics().bodyLimitRejected.Inc()
			return 0, ErrBodyTooLarge
		}
		return 0, err
	}

	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}

	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)
	return n, err
}
