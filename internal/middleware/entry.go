package middleware

import (
	"fmt"
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Entry is one declared middleware: a reference, its priority within
// the declaration unit, and an optional runtime condition.
type Entry struct {
	// Ref is a string identifier (alias, group or concrete name) or a
	// Middleware value.
	Ref any

	// Priority orders entries within one unit; higher runs first.
	Priority int

	// When is a CEL boolean expression; false skips the stage.
	When string
}

// Named returns an entry for a string identifier.
func Named(ref string) Entry {
	return Entry{Ref: ref}
}

// Func returns an entry for a middleware value.
func Func(mw Middleware) Entry {
	return Entry{Ref: mw}
}

// String returns a readable form of the reference for logs.
func (e Entry) String() string {
	switch ref := e.Ref.(type) {
	case string:
		return ref
	case Middleware, func(http.Handler) http.Handler:
		return "<func>"
	default:
		return fmt.Sprintf("<%T>", ref)
	}
}

// Declarer is anything that declares middleware for a pipeline, such as
// a route.
type Declarer interface {
	// ID identifies the declarer; built pipelines are cached under it.
	ID() string

	// MiddlewareUnits returns the declaration units from outermost
	// group to the route itself.
	MiddlewareUnits() [][]Entry

	// ExcludedMiddleware returns identifiers removed from the pipeline.
	ExcludedMiddleware() []string
}
