package router

import (
	"context"
	"sync/atomic"
)

// MatcherKind identifies a matching strategy. Strategies are consulted
// in the order of their kinds.
type MatcherKind uint8

// Matcher kinds in lookup priority order.
const (
	KindStatic MatcherKind = iota
	KindCompiled
	KindTrie

	numKinds = 3
)

// String returns the strategy name used in metrics and stats.
func (k MatcherKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindCompiled:
		return "compiled"
	case KindTrie:
		return "trie"
	default:
		return "unknown"
	}
}

// Classify picks the strategy for a path pattern: static patterns go
// to the static map, patterns one expression covers without branching
// go to the compiled list, everything else goes to the trie.
func Classify(p *Pattern) MatcherKind {
	if p.IsStatic() {
		return KindStatic
	}
	for _, seg := range p.Segments() {
		if seg.HasWildcard() || seg.IsOptional() {
			return KindTrie
		}
	}
	return KindCompiled
}

// Match is a resolved route and its parameters.
type Match struct {
	Route  *Route
	Params Params

	// kind is set by Manager.FindAll. Matches rebuilt from the result
	// cache leave walked false: no strategy ran for them.
	kind   MatcherKind
	walked bool
}

// Selector finds routes by method and path.
type Selector interface {
	// Match returns the best route for method and path.
	Match(ctx context.Context, method, path string) (Match, bool)

	// FindAll returns every route matching method and path, best first.
	FindAll(ctx context.Context, method, path string) []Match
}

// StrategyStats describes one strategy.
type StrategyStats struct {
	Kind MatcherKind

	// Routes counts registrations, one per route and method.
	Routes int
	Hits   uint64

	// Share is the strategy's percentage of all hits.
	Share float64
}

// ManagerStats aggregates strategy statistics.
type ManagerStats struct {
	Strategies []StrategyStats
	TotalHits  uint64
}

// Manager assigns each route to one strategy at registration and
// consults the strategies in fixed order at lookup, so a static match
// always outranks a compiled one, and a compiled one a trie match.
//
// Add is not safe for concurrent use; lookups are, once adding is done.
type Manager struct {
	static   *staticMatcher
	compiled *compiledMatcher
	trie     *trieMatcher

	hits [numKinds]atomic.Uint64
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		static:   newStaticMatcher(),
		compiled: newCompiledMatcher(),
		trie:     newTrieMatcher(),
	}
}

// Add registers r under each of its methods and returns the strategy
// it was assigned to.
func (m *Manager) Add(r *Route) MatcherKind {
	kind := Classify(r.path)
	for _, method := range r.methods {
		switch kind {
		case KindStatic:
			m.static.add(method, r)
		case KindCompiled:
			m.compiled.add(method, r)
		default:
			m.trie.add(method, r)
		}
	}
	return kind
}

func (m *Manager) find(kind MatcherKind, method, path string, all bool) []Match {
	switch kind {
	case KindStatic:
		return m.static.find(method, path, all)
	case KindCompiled:
		return m.compiled.find(method, path, all)
	default:
		return m.trie.find(method, path, all)
	}
}

// Match implements Selector.
func (m *Manager) Match(_ context.Context, method, path string) (Match, bool) {
	path = NormalizePath(path)
	for kind := MatcherKind(0); kind < numKinds; kind++ {
		if found := m.find(kind, method, path, false); len(found) > 0 {
			m.recordHit(kind)
			return withDefaults(found[0]), true
		}
	}
	return Match{}, false
}

// FindAll implements Selector. It records no hits: the caller picks
// among the candidates and reports its choice with RecordSelected.
func (m *Manager) FindAll(_ context.Context, method, path string) []Match {
	path = NormalizePath(path)
	var all []Match
	for kind := MatcherKind(0); kind < numKinds; kind++ {
		for _, match := range m.find(kind, method, path, true) {
			match = withDefaults(match)
			match.kind, match.walked = kind, true
			all = append(all, match)
		}
	}
	return all
}

// RecordSelected counts a hit for the strategy that produced c, unless
// c came from the result cache.
func (m *Manager) RecordSelected(c Match) {
	if c.walked {
		m.recordHit(c.kind)
	}
}

func withDefaults(m Match) Match {
	m.Params = m.Route.applyDefaults(m.Params)
	return m
}

func (m *Manager) recordHit(kind MatcherKind) {
	m.hits[kind].Add(1)
	getRouterMetrics().strategyHits.WithLabelValues(kind.String()).Inc()
}

// Stats returns per-strategy route counts and hit shares.
func (m *Manager) Stats() ManagerStats {
	counts := [numKinds]int{m.static.count, m.compiled.count, m.trie.count}

	var stats ManagerStats
	for kind := MatcherKind(0); kind < numKinds; kind++ {
		hits := m.hits[kind].Load()
		stats.TotalHits += hits
		stats.Strategies = append(stats.Strategies, StrategyStats{
			Kind:   kind,
			Routes: counts[kind],
			Hits:   hits,
		})
	}
	if stats.TotalHits > 0 {
		for i := range stats.Strategies {
			stats.Strategies[i].Share = float64(stats.Strategies[i].Hits) / float64(stats.TotalHits) * 100
		}
	}
	return stats
}
