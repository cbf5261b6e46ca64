// Package dispatch runs HTTP requests through the route table.
//
// A Dispatcher looks a request up in a router.Router, binds the matched
// parameters to the request, resolves the route's handler reference
// and runs it inside the route's middleware pipeline. Each request
// moves through a small state machine:
//
//	Unmatched -> Matched -> Piped -> Responded
//	Unmatched -> NotFound
//	Unmatched -> MethodNotAllowed
//
// NotFound and MethodNotAllowed are expected outcomes, not failures.
// ServeHTTP renders them as JSON 404 and 405 responses; Dispatch also
// returns them to callers that want to render them differently.
//
// Handler references stored on routes are opaque to the router. The
// default HandlerRegistry accepts http.Handler values, plain handler
// functions and names registered beforehand:
//
//	handlers := dispatch.NewHandlerRegistry()
//	handlers.Register("health", healthHandler)
//
//	rt := router.New()
//	rt.Get("/health", "health")
//	rt.Get("/users/{id:\\d+}", getUser)
//
//	d, err := dispatch.New(rt, dispatch.WithHandlerResolver(handlers))
package dispatch
