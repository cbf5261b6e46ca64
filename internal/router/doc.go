// Package router provides the matching engine of avarouter.
//
// Routes are registered with a method set, a path template and optional
// host, port and scheme constraints. Each path template is classified
// once, at registration, into one of three strategies:
//
//   - static: templates without placeholders, answered by a map lookup
//   - compiled: templates one anchored expression covers
//   - trie: templates with wildcards or optional segments
//
// Lookups consult the strategies in that order, so an exact static
// match always outranks a dynamic one. Among routes of one strategy the
// most recently registered route wins.
//
// # Templates
//
// Path templates use "/" as separator and host templates use ".":
//
//	/users/{id}             named parameter, default constraint [^/]+
//	/users/{id:\d+}         inline constraint
//	/archive/{year?}        optional segment
//	/files/{path*}          wildcard, consumes the rest of the path
//	{tenant}.example.com    host parameter, default constraint [^.]+
//
// Constraints passed with WithConstraint override inline ones.
//
// # Usage
//
//	r := router.New(router.WithLogger(logger))
//	_, err := r.Get("/users/{id:\d+}", handler, router.WithName("user"))
//	if err != nil {
//	    return err
//	}
//
//	m, err := r.LookupRequest(req)
//	switch {
//	case errors.Is(err, util.ErrMethodNotAllowed):
//	    // 405
//	case errors.Is(err, util.ErrNotFound):
//	    // 404
//	}
//
// Registration may happen at any time. Lookups run against an immutable
// snapshot of the table that is rebuilt after registrations, and are
// safe for concurrent use.
//
// With WithResultCache, lookups are memoized in a cache.Cache as route
// identifiers plus parameters, never as handlers.
package router
