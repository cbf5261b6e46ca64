package router

// staticMatcher answers patterns without placeholders with one map
// lookup per method.
type staticMatcher struct {
	// routes maps method, then path, to routes in registration order.
	routes map[string]map[string][]*Route
	count  int
}

func newStaticMatcher() *staticMatcher {
	return &staticMatcher{routes: make(map[string]map[string][]*Route)}
}

func (m *staticMatcher) add(method string, r *Route) {
	byPath, ok := m.routes[method]
	if !ok {
		byPath = make(map[string][]*Route)
		m.routes[method] = byPath
	}
	byPath[r.path.Raw()] = append(byPath[r.path.Raw()], r)
	m.count++
}

// find returns the routes registered for exactly path, newest first.
func (m *staticMatcher) find(method, path string, all bool) []Match {
	routes := m.routes[method][path]
	if len(routes) == 0 {
		return nil
	}
	if !all {
		return []Match{{Route: routes[len(routes)-1]}}
	}

	matches := make([]Match, 0, len(routes))
	for i := len(routes) - 1; i >= 0; i-- {
		matches = append(matches, Match{Route: routes[i]})
	}
	return matches
}
