package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RouteConfig declares one route.
type RouteConfig struct {
	// Name is an optional unique route name. Inside a group the group
	// name prefix is prepended.
	Name string `yaml:"name,omitempty" toml:"name" json:"name,omitempty"`

	// Methods are the HTTP verbs this route answers. GET implies HEAD.
	// "*" registers every standard method.
	Methods []string `yaml:"methods" toml:"methods" json:"methods"`

	// Path is the path template, relative to the enclosing group prefix.
	Path string `yaml:"path" toml:"path" json:"path"`

	// Handler names a registered handler.
	Handler string `yaml:"handler" toml:"handler" json:"handler"`

	// Host is an optional host template using "." as separator.
	Host string `yaml:"host,omitempty" toml:"host" json:"host,omitempty"`

	// HostConstraints override inline constraints of host parameters.
	HostConstraints map[string]string `yaml:"hostConstraints,omitempty" toml:"hostConstraints" json:"hostConstraints,omitempty"`

	// Ports restricts the effective request port.
	Ports []int `yaml:"ports,omitempty" toml:"ports" json:"ports,omitempty"`

	// PortParam captures the effective port under this parameter name.
	// Mutually exclusive with Ports.
	PortParam string `yaml:"portParam,omitempty" toml:"portParam" json:"portParam,omitempty"`

	// Schemes restricts the request scheme. A single "{name}" entry
	// captures the scheme instead.
	Schemes []string `yaml:"schemes,omitempty" toml:"schemes" json:"schemes,omitempty"`

	// Constraints override inline constraints of path parameters.
	Constraints map[string]string `yaml:"constraints,omitempty" toml:"constraints" json:"constraints,omitempty"`

	// Defaults supply values for omitted optional parameters.
	Defaults map[string]string `yaml:"defaults,omitempty" toml:"defaults" json:"defaults,omitempty"`

	// Middleware is the route-level middleware list.
	Middleware []MiddlewareEntry `yaml:"middleware,omitempty" toml:"middleware" json:"middleware,omitempty"`

	// WithoutMiddleware lists middleware names removed from the
	// pipeline of this route after expansion.
	WithoutMiddleware []string `yaml:"withoutMiddleware,omitempty" toml:"withoutMiddleware" json:"withoutMiddleware,omitempty"`
}

// GroupConfig declares a route group. Groups nest.
type GroupConfig struct {
	Name        string            `yaml:"name,omitempty" toml:"name" json:"name,omitempty"`
	Prefix      string            `yaml:"prefix" toml:"prefix" json:"prefix"`
	Host        string            `yaml:"host,omitempty" toml:"host" json:"host,omitempty"`
	Constraints map[string]string `yaml:"constraints,omitempty" toml:"constraints" json:"constraints,omitempty"`
	Middleware  []MiddlewareEntry `yaml:"middleware,omitempty" toml:"middleware" json:"middleware,omitempty"`

	// Routes register before the nested Groups.
	Routes []RouteConfig `yaml:"routes,omitempty" toml:"routes" json:"routes,omitempty"`
	Groups []GroupConfig `yaml:"groups,omitempty" toml:"groups" json:"groups,omitempty"`
}

// MiddlewareConfig declares the middleware registry.
type MiddlewareConfig struct {
	// Global middleware runs first on every route.
	Global []MiddlewareEntry `yaml:"global,omitempty" toml:"global" json:"global,omitempty"`

	// Aliases map a short name to one concrete identifier.
	Aliases map[string]string `yaml:"aliases,omitempty" toml:"aliases" json:"aliases,omitempty"`

	// Groups map a name to an ordered list of names, which may be
	// aliases, other groups or concrete identifiers.
	Groups map[string][]string `yaml:"groups,omitempty" toml:"groups" json:"groups,omitempty"`
}

// MiddlewareEntry is one middleware declaration. In route files it is
// either a bare string or a table with ref, priority and when.
type MiddlewareEntry struct {
	Ref      string `yaml:"ref" toml:"ref" json:"ref"`
	Priority int    `yaml:"priority,omitempty" toml:"priority" json:"priority,omitempty"`
	When     string `yaml:"when,omitempty" toml:"when" json:"when,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (e *MiddlewareEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Ref = node.Value
		return nil
	}

	type plain MiddlewareEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = MiddlewareEntry(p)
	return nil
}

// UnmarshalTOML accepts both the string and the table form.
func (e *MiddlewareEntry) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		e.Ref = v
		return nil
	case map[string]any:
		return e.fromTable(v)
	default:
		return fmt.Errorf("middleware entry: unsupported value of type %T", data)
	}
}

func (e *MiddlewareEntry) fromTable(table map[string]any) error {
	for key, raw := range table {
		switch key {
		case "ref":
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("middleware entry: ref must be a string, got %T", raw)
			}
			e.Ref = s
		case "priority":
			n, ok := raw.(int64)
			if !ok {
				return fmt.Errorf("middleware entry: priority must be an integer, got %T", raw)
			}
			e.Priority = int(n)
		case "when":
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("middleware entry: when must be a string, got %T", raw)
			}
			e.When = s
		default:
			return fmt.Errorf("middleware entry: unknown key %q", key)
		}
	}
	return nil
}
