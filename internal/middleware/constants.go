package middleware

import (
	"net/http"

	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// unknownRoute is the fallback label value used when the route name
// is not available in the request context.
const unknownRoute = "unknown"

// routeLabel returns the route label recorded by the dispatcher.
func routeLabel(r *http.Request) string {
	if route := observability.RouteFromContext(r.Context()); route != "" {
		return route
	}
	return unknownRoute
}

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderOrigin is the Origin header name.
	HeaderOrigin = "Origin"

	// HeaderXRequestID is the X-Request-ID header name.
	HeaderXRequestID = "X-Request-ID"

	// HeaderXForwardedFor is the X-Forwarded-For header name.
	HeaderXForwardedFor = "X-Forwarded-For"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// Error response bodies.
const (
	// ErrRateLimitExceeded is the error message for rate limit exceeded.
	ErrRateLimitExceeded = `{"error":"rate limit exceeded"}`

	// ErrGatewayTimeout is the error message for a handler timeout.
	ErrGatewayTimeout = `{"error":"gateway timeout"}`

	// ErrServiceUnavailable is the error message for an open circuit.
	ErrServiceUnavailable = `{"error":"service unavailable","message":"circuit breaker open"}`

	// ErrInternalServerError is the error message for internal server error.
	ErrInternalServerError = `{"error":"internal server error"}`

	// ErrRequestEntityTooLarge is the error message for request body too large.
	ErrRequestEntityTooLarge = `{"error":"request entity too large"}`
)
