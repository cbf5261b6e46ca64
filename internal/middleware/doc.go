// Package middleware builds the per-route middleware pipelines of the
// router.
//
// A pipeline is assembled from declaration units: the global list,
// then one unit per enclosing route group from outer to inner, then
// the route itself. Inside a unit, entries run in descending priority
// order and keep their declaration order on ties. String references
// are expanded through a Registry, where a group flattens into its
// members, an alias maps to one identifier and anything else is a
// concrete identifier. A group that refers back to itself is cut at
// the point of re-entry.
//
// Concrete identifiers are resolved to Middleware by a Resolver. The
// Catalog resolver knows the built-in middleware:
//
//	requestid                       X-Request-ID propagation
//	recovery                        panic to 500
//	logging                         access log line
//	nocache                         Cache-Control: no-store
//	ratelimit:<rps>:<burst>[:client] token bucket, shared or per client
//	timeout:<duration>              504 after the deadline
//	headers:<name>=<value>,...      response headers
//	cors[:<origin>,...]             CORS preflight and headers
//	bodylimit:<bytes>               413 above the limit
//	circuitbreaker:<n>:<timeout>    503 while open
//
// An identifier that cannot be resolved does not fail the pipeline: it
// becomes a pass-through stage and is logged once when the pipeline is
// built.
//
// An entry may carry a CEL condition in When, evaluated per request
// over request.method, request.path, request.host, request.scheme,
// request.port, request.headers and params:
//
//	middleware.Entry{Ref: "ratelimit:5:10", When: `request.method != "GET"`}
//
// The stage is skipped when the condition is false.
package middleware
