package router

// trieNode is one segment position. A node has literal children keyed
// by exact text, at most one parameter child and at most one wildcard
// child. Routes ending at the node are kept in registration order.
type trieNode struct {
	static   map[string]*trieNode
	param    *trieNode
	wildcard *trieNode
	routes   []*Route
}

func newTrieNode() *trieNode {
	return &trieNode{}
}

func (n *trieNode) staticChild(text string) *trieNode {
	if n.static == nil {
		n.static = make(map[string]*trieNode)
	}
	child, ok := n.static[text]
	if !ok {
		child = newTrieNode()
		n.static[text] = child
	}
	return child
}

func (n *trieNode) paramChild() *trieNode {
	if n.param == nil {
		n.param = newTrieNode()
	}
	return n.param
}

func (n *trieNode) wildcardChild() *trieNode {
	if n.wildcard == nil {
		n.wildcard = newTrieNode()
	}
	return n.wildcard
}

// addRoute appends r unless the previous variant of the same route
// already ended here.
func (n *trieNode) addRoute(r *Route) {
	if len(n.routes) > 0 && n.routes[len(n.routes)-1] == r {
		return
	}
	n.routes = append(n.routes, r)
}

// trieMatcher indexes patterns with wildcards or optional segments.
// The trie only narrows the candidates: each route still validates the
// path against its own compiled pattern, so routes sharing a node keep
// their own constraints.
type trieMatcher struct {
	roots map[string]*trieNode
	count int
}

func newTrieMatcher() *trieMatcher {
	return &trieMatcher{roots: make(map[string]*trieNode)}
}

func (m *trieMatcher) add(method string, r *Route) {
	root, ok := m.roots[method]
	if !ok {
		root = newTrieNode()
		m.roots[method] = root
	}

	for _, variant := range expandOptional(r.path.Segments()) {
		n := root
		for _, seg := range variant {
			if seg.HasWildcard() {
				// A wildcard consumes the rest of the path.
				n = n.wildcardChild()
				break
			}
			if seg.IsLiteral() {
				n = n.staticChild(seg.Raw)
			} else {
				n = n.paramChild()
			}
		}
		n.addRoute(r)
	}
	m.count++
}

// expandOptional returns every segment list obtained by keeping or
// dropping each optional segment, longest first.
func expandOptional(segments []Segment) [][]Segment {
	variants := [][]Segment{nil}
	for _, seg := range segments {
		next := make([][]Segment, 0, len(variants)*2)
		for _, v := range variants {
			next = append(next, append(v[:len(v):len(v)], seg))
			if seg.IsOptional() {
				next = append(next, v)
			}
		}
		variants = next
	}
	return variants
}

// find walks the path. At every level a literal child is preferred
// over the parameter child; a wildcard child is only used when the
// walk cannot continue or the routes below reject the path, deepest
// wildcard first.
func (m *trieMatcher) find(method, path string, all bool) []Match {
	root, ok := m.roots[method]
	if !ok {
		return nil
	}

	segs := splitPath(path)
	var wildcards []*trieNode
	n := root
	for _, seg := range segs {
		if n.wildcard != nil {
			wildcards = append(wildcards, n.wildcard)
		}
		if child, found := n.static[seg]; found {
			n = child
			continue
		}
		if n.param != nil {
			n = n.param
			continue
		}
		n = nil
		break
	}

	var matches []Match
	collect := func(node *trieNode) bool {
		for i := len(node.routes) - 1; i >= 0; i-- {
			r := node.routes[i]
			if all && containsRoute(matches, r) {
				continue
			}
			params, matched := r.path.Match(path)
			if !matched {
				continue
			}
			matches = append(matches, Match{Route: r, Params: params})
			if !all {
				return true
			}
		}
		return false
	}

	if n != nil && collect(n) {
		return matches
	}
	for i := len(wildcards) - 1; i >= 0; i-- {
		if collect(wildcards[i]) {
			return matches
		}
	}
	return matches
}

func containsRoute(matches []Match, r *Route) bool {
	for _, m := range matches {
		if m.Route == r {
			return true
		}
	}
	return false
}
