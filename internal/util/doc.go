// Package util provides shared types for the router.
//
// The main content of this package is the error taxonomy used by the
// matching and dispatch engine:
//
//   - RouteNotFoundError: no route matches the request context
//   - MethodNotAllowedError: the path matches under other methods
//   - InvalidPatternError: a route template could not be compiled
//   - HandlerResolutionError: a handler reference could not be resolved
//   - ConfigError: configuration problems
//
// Every type can be matched with errors.Is against its sentinel:
//
//	if errors.Is(err, util.ErrMethodNotAllowed) {
//	    var mna *util.MethodNotAllowedError
//	    errors.As(err, &mna)
//	    w.Header().Set("Allow", strings.Join(mna.Allowed, ", "))
//	}
//
// RequestScheme, RequestHostPort and SplitHostPort derive the scheme,
// host and port of a request the same way for route matching and for
// middleware conditions.
package util
