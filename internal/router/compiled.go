package router

// compiledMatcher tries the compiled expression of each pattern in
// turn. It holds patterns without wildcards or optional segments.
type compiledMatcher struct {
	// routes maps a method to its routes in registration order.
	routes map[string][]*Route
	count  int
}

func newCompiledMatcher() *compiledMatcher {
	return &compiledMatcher{routes: make(map[string][]*Route)}
}

func (m *compiledMatcher) add(method string, r *Route) {
	m.routes[method] = append(m.routes[method], r)
	m.count++
}

// find returns the routes whose expression matches path, newest first.
func (m *compiledMatcher) find(method, path string, all bool) []Match {
	routes := m.routes[method]

	var matches []Match
	for i := len(routes) - 1; i >= 0; i-- {
		params, ok := routes[i].path.Match(path)
		if !ok {
			continue
		}
		matches = append(matches, Match{Route: routes[i], Params: params})
		if !all {
			break
		}
	}
	return matches
}
