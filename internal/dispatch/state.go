package dispatch

// State is the position of a request in the dispatch state machine.
type State int

const (
	// StateUnmatched is the state before the route lookup.
	StateUnmatched State = iota
	// StateMatched means a route was found and its parameters bound.
	StateMatched
	// StatePiped means the middleware pipeline is running.
	StatePiped
	// StateResponded means the pipeline returned.
	StateResponded
	// StateNotFound means no route matches the request.
	StateNotFound
	// StateMethodNotAllowed means the path matches only under other
	// methods.
	StateMethodNotAllowed
)

// String returns the state name used in logs and metric labels.
func (s State) String() string {
	switch s {
	case StateUnmatched:
		return "unmatched"
	case StateMatched:
		return "matched"
	case StatePiped:
		return "piped"
	case StateResponded:
		return "responded"
	case StateNotFound:
		return "not_found"
	case StateMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateResponded || s == StateNotFound || s == StateMethodNotAllowed
}
