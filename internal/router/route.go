package router

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

// StandardMethods is the method set registered by Any.
var StandardMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// Route is a registered route. Routes are immutable once registered
// and safe to share between goroutines.
type Route struct {
	id      string
	name    string
	methods []string
	handler any

	template    string
	path        *Pattern
	constraints map[string]string
	defaults    map[string]string

	hostTemplate    string
	host            *Pattern
	hostConstraints map[string]string

	ports     []int
	portParam string

	schemes     []string
	schemeParam string

	middleware []middleware.Entry
	groupUnits [][]middleware.Entry
	without    []string
}

// ID returns the route identifier, unique within its router.
func (r *Route) ID() string { return r.id }

// Name returns the route name, or "".
func (r *Route) Name() string { return r.name }

// Methods returns the sorted method set, including the implicit HEAD.
func (r *Route) Methods() []string { return slices.Clone(r.methods) }

// Pattern returns the normalized path template.
func (r *Route) Pattern() string { return r.path.Raw() }

// PathPattern returns the compiled path pattern.
func (r *Route) PathPattern() *Pattern { return r.path }

// Handler returns the opaque handler reference.
func (r *Route) Handler() any { return r.handler }

// Host returns the host template, or "".
func (r *Route) Host() string { return r.hostTemplate }

// Ports returns the allowed ports; empty means any.
func (r *Route) Ports() []int { return slices.Clone(r.ports) }

// Schemes returns the allowed schemes; empty means any.
func (r *Route) Schemes() []string { return slices.Clone(r.schemes) }

// Constraints returns the route-level path constraints.
func (r *Route) Constraints() map[string]string { return maps.Clone(r.constraints) }

// Defaults returns the default values of omitted optional parameters.
func (r *Route) Defaults() map[string]string { return maps.Clone(r.defaults) }

// Label returns the name, or the pattern for unnamed routes. It is used
// for metrics and logs.
func (r *Route) Label() string {
	if r.name != "" {
		return r.name
	}
	return r.path.Raw()
}

// MiddlewareUnits returns the middleware of each enclosing group, outer
// to inner, followed by the route's own.
func (r *Route) MiddlewareUnits() [][]middleware.Entry {
	units := make([][]middleware.Entry, 0, len(r.groupUnits)+1)
	units = append(units, r.groupUnits...)
	return append(units, r.middleware)
}

// ExcludedMiddleware returns the identifiers excluded from the pipeline.
func (r *Route) ExcludedMiddleware() []string { return r.without }

func (r *Route) hasMethod(method string) bool {
	_, found := slices.BinarySearch(r.methods, method)
	return found
}

// RouteOption configures a route at registration.
type RouteOption func(*Route)

// WithName sets the route name.
func WithName(name string) RouteOption {
	return func(r *Route) {
		r.name = name
	}
}

// WithConstraint sets the constraint of one path parameter.
func WithConstraint(param, expr string) RouteOption {
	return func(r *Route) {
		r.constraints[param] = expr
	}
}

// WithConstraints sets several path parameter constraints.
func WithConstraints(constraints map[string]string) RouteOption {
	return func(r *Route) {
		maps.Copy(r.constraints, constraints)
	}
}

// WithHost restricts the route to a host template.
func WithHost(host string) RouteOption {
	return func(r *Route) {
		r.hostTemplate = host
	}
}

// WithHostConstraint sets the constraint of one host parameter.
func WithHostConstraint(param, expr string) RouteOption {
	return func(r *Route) {
		r.hostConstraints[param] = expr
	}
}

// WithHostConstraints sets several host parameter constraints.
func WithHostConstraints(constraints map[string]string) RouteOption {
	return func(r *Route) {
		maps.Copy(r.hostConstraints, constraints)
	}
}

// WithPort restricts the route to the given ports.
func WithPort(ports ...int) RouteOption {
	return func(r *Route) {
		r.ports = append(r.ports, ports...)
	}
}

// WithPortParam accepts any port and captures it under name.
func WithPortParam(name string) RouteOption {
	return func(r *Route) {
		r.portParam = name
	}
}

// WithScheme restricts the route to the given schemes. A single
// "{name}" entry accepts any scheme and captures it under name.
func WithScheme(schemes ...string) RouteOption {
	return func(r *Route) {
		r.schemes = append(r.schemes, schemes...)
	}
}

// WithMiddleware appends middleware entries to the route.
func WithMiddleware(entries ...middleware.Entry) RouteOption {
	return func(r *Route) {
		r.middleware = append(r.middleware, entries...)
	}
}

// WithoutMiddleware excludes identifiers from the route's pipeline.
func WithoutMiddleware(names ...string) RouteOption {
	return func(r *Route) {
		r.without = append(r.without, names...)
	}
}

// WithDefaults sets values used for optional parameters that the
// request omits.
func WithDefaults(defaults map[string]string) RouteOption {
	return func(r *Route) {
		maps.Copy(r.defaults, defaults)
	}
}

func newRoute(methods []string, template string, handler any) *Route {
	return &Route{
		methods:         normalizeMethods(methods),
		template:        template,
		handler:         handler,
		constraints:     make(map[string]string),
		defaults:        make(map[string]string),
		hostConstraints: make(map[string]string),
	}
}

// normalizeMethods uppercases, deduplicates and sorts methods, and adds
// HEAD wherever GET is present.
func normalizeMethods(methods []string) []string {
	set := make(map[string]struct{}, len(methods)+1)
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "*" {
			for _, s := range StandardMethods {
				set[s] = struct{}{}
			}
			continue
		}
		if m != "" {
			set[m] = struct{}{}
		}
	}
	if _, ok := set[http.MethodGet]; ok {
		set[http.MethodHead] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// compile validates the route and compiles its patterns.
func (r *Route) compile() error {
	if len(r.methods) == 0 {
		return util.NewInvalidPatternError(r.template, -1, "route has no methods")
	}

	var err error
	if r.path, err = NewPathPattern(r.template, r.constraints); err != nil {
		return err
	}
	for name := range r.defaults {
		if !slices.Contains(r.path.Params(), name) {
			return util.NewInvalidPatternError(r.path.Raw(), -1,
				fmt.Sprintf("default for unknown parameter %q", name))
		}
	}

	if r.hostTemplate != "" {
		if r.host, err = NewHostPattern(r.hostTemplate, r.hostConstraints); err != nil {
			return err
		}
	}

	for _, port := range r.ports {
		if port < 1 || port > 65535 {
			return util.NewInvalidPatternError(r.path.Raw(), -1, "invalid port "+strconv.Itoa(port))
		}
	}
	if r.portParam != "" {
		if len(r.ports) > 0 {
			return util.NewInvalidPatternError(r.path.Raw(), -1, "port list and port parameter are exclusive")
		}
		if !paramNameRegex.MatchString(r.portParam) {
			return util.NewInvalidPatternError(r.path.Raw(), -1,
				fmt.Sprintf("invalid port parameter name %q", r.portParam))
		}
	}

	return r.compileSchemes()
}

func (r *Route) compileSchemes() error {
	schemes := make([]string, 0, len(r.schemes))
	for _, s := range r.schemes {
		s = strings.ToLower(strings.TrimSpace(s))
		if name, ok := strings.CutPrefix(s, "{"); ok {
			name, ok = strings.CutSuffix(name, "}")
			if !ok || !paramNameRegex.MatchString(name) || len(r.schemes) != 1 {
				return util.NewInvalidPatternError(r.path.Raw(), -1,
					fmt.Sprintf("invalid scheme parameter %q", s))
			}
			r.schemeParam = name
			r.schemes = nil
			return nil
		}
		if s != "" {
			schemes = append(schemes, s)
		}
	}
	r.schemes = schemes
	return nil
}

// applyDefaults fills in omitted optional parameters.
func (r *Route) applyDefaults(params Params) Params {
	if len(r.defaults) == 0 {
		return params
	}
	out := make(Params, 0, len(r.path.Params()))
	for _, name := range r.path.Params() {
		if v, ok := params.Lookup(name); ok {
			out = append(out, Param{Key: name, Value: v})
		} else if def, ok := r.defaults[name]; ok {
			out = append(out, Param{Key: name, Value: def})
		}
	}
	return out
}
