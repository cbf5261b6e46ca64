package middleware

import (
	"maps"
	"slices"
	"sync"

	"github.com/vyrodovalexey/avarouter/internal/config"
)

// Registry holds middleware aliases and groups. A registry is owned by
// one router and shared with its pipeline builder.
type Registry struct {
	mu      sync.RWMutex
	aliases map[string]string
	groups  map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		aliases: make(map[string]string),
		groups:  make(map[string][]string),
	}
}

// NewRegistryFromConfig creates a registry from the middleware section
// of a route file.
func NewRegistryFromConfig(cfg config.MiddlewareConfig) *Registry {
	r := NewRegistry()
	for name, target := range cfg.Aliases {
		r.Alias(name, target)
	}
	for name, members := range cfg.Groups {
		r.Group(name, members...)
	}
	return r
}

// Alias maps name to a single target identifier, replacing any
// previous alias of that name.
func (r *Registry) Alias(name, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = target
}

// Group defines name as an ordered list of members, replacing any
// previous definition. Members may be aliases, other groups or concrete
// identifiers.
func (r *Registry) Group(name string, members ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[name] = slices.Clone(members)
}

// PrependToGroup inserts members at the front of a group, creating it
// if needed.
func (r *Registry) PrependToGroup(name string, members ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[name] = append(slices.Clone(members), r.groups[name]...)
}

// AppendToGroup adds members at the end of a group, creating it if
// needed.
func (r *Registry) AppendToGroup(name string, members ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[name] = append(slices.Clone(r.groups[name]), members...)
}

// Resolve expands name into concrete identifiers. Groups expand
// recursively in member order; an alias yields its target; anything
// else is returned as is. A group that re-enters itself along the
// current expansion path is skipped.
func (r *Registry) Resolve(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	r.resolve(name, make(map[string]struct{}), &out)
	return out
}

func (r *Registry) resolve(name string, seen map[string]struct{}, out *[]string) {
	if members, ok := r.groups[name]; ok {
		if _, cyclic := seen[name]; cyclic {
			return
		}
		seen[name] = struct{}{}
		for _, member := range members {
			r.resolve(member, seen, out)
		}
		delete(seen, name)
		return
	}

	if target, ok := r.aliases[name]; ok {
		*out = append(*out, target)
		return
	}

	*out = append(*out, name)
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.aliases)
}

// Groups returns a copy of the group table.
func (r *Registry) Groups() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.groups))
	for name, members := range r.groups {
		out[name] = slices.Clone(members)
	}
	return out
}
