package config

import (
	"fmt"
	"regexp"
	"strings"
)

// methodToken matches an HTTP method token.
var methodToken = regexp.MustCompile(`^[A-Za-z]+$`)

// paramName matches a placeholder name used by portParam and scheme captures.
var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const maxPort = 65535

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates route files.
type Validator struct {
	errors ValidationErrors
	names  map[string]string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a route file.
func ValidateConfig(config *RouterConfig) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns every problem found
// as ValidationErrors, or nil.
func (v *Validator) Validate(config *RouterConfig) error {
	v.errors = make(ValidationErrors, 0)
	v.names = make(map[string]string)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(config)
	v.validateLogging(&config.Spec.Logging)
	v.validateTracing(&config.Spec.Tracing)
	v.validateCache(config.Spec.Cache)
	v.validateMiddlewareConfig(&config.Spec.Middleware)

	for i := range config.Spec.Routes {
		v.validateRoute(&config.Spec.Routes[i], fmt.Sprintf("spec.routes[%d]", i), "", true)
	}
	for i := range config.Spec.Groups {
		v.validateGroup(&config.Spec.Groups[i], fmt.Sprintf("spec.groups[%d]", i), "")
	}

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRoot(config *RouterConfig) {
	if config.APIVersion != "" && !strings.HasPrefix(config.APIVersion, "avarouter.io/") {
		v.addError("apiVersion", "apiVersion must start with 'avarouter.io/'")
	}
	if config.Kind != "" && config.Kind != DefaultKind {
		v.addError("kind", "kind must be '"+DefaultKind+"'")
	}
}

func (v *Validator) validateLogging(cfg *LoggingConfig) {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		v.addError("spec.logging.level", fmt.Sprintf("unknown level %q", cfg.Level))
	}
	switch cfg.Format {
	case "", "json", "console":
	default:
		v.addError("spec.logging.format", fmt.Sprintf("unknown format %q", cfg.Format))
	}
}

func (v *Validator) validateTracing(cfg *TracingConfig) {
	if cfg.SamplingRate < 0 || cfg.SamplingRate > 1 {
		v.addError("spec.tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *Validator) validateCache(cfg *CacheConfig) {
	if cfg == nil {
		return
	}

	const path = "spec.cache"
	if cfg.TTL < 0 {
		v.addError(path+".ttl", "must not be negative")
	}
	if cfg.MaxEntries < 0 {
		v.addError(path+".maxEntries", "must not be negative")
	}

	switch cfg.Type {
	case "", CacheTypeMemory, CacheTypeDisabled:
	case CacheTypeFile:
		if cfg.File == nil || cfg.File.Path == "" {
			v.addError(path+".file.path", "file cache requires a path")
		}
	case CacheTypeRedis:
		v.validateRedis(cfg.Redis, path+".redis")
	default:
		v.addError(path+".type", fmt.Sprintf("unknown cache type %q", cfg.Type))
	}
}

func (v *Validator) validateRedis(cfg *RedisCacheConfig, path string) {
	if cfg == nil {
		v.addError(path, "redis cache requires a redis section")
		return
	}

	hasSentinel := cfg.Sentinel != nil
	switch {
	case cfg.URL == "" && !hasSentinel:
		v.addError(path, "either url or sentinel is required")
	case cfg.URL != "" && hasSentinel:
		v.addError(path, "url and sentinel are mutually exclusive")
	}

	if hasSentinel {
		if cfg.Sentinel.MasterName == "" {
			v.addError(path+".sentinel.masterName", "masterName is required")
		}
		if len(cfg.Sentinel.SentinelAddrs) == 0 {
			v.addError(path+".sentinel.sentinelAddrs", "at least one sentinel address is required")
		}
	}

	if cfg.TTLJitter < 0 || cfg.TTLJitter > 1 {
		v.addError(path+".ttlJitter", "must be between 0 and 1")
	}
	if cfg.PoolSize < 0 {
		v.addError(path+".poolSize", "must not be negative")
	}
}

func (v *Validator) validateMiddlewareConfig(cfg *MiddlewareConfig) {
	v.validateEntries(cfg.Global, "spec.middleware.global")

	for name, target := range cfg.Aliases {
		if name == "" {
			v.addError("spec.middleware.aliases", "alias name must not be empty")
		}
		if target == "" {
			v.addError("spec.middleware.aliases."+name, "alias target must not be empty")
		}
	}

	for name, members := range cfg.Groups {
		if name == "" {
			v.addError("spec.middleware.groups", "group name must not be empty")
		}
		for i, m := range members {
			if m == "" {
				v.addError(fmt.Sprintf("spec.middleware.groups.%s[%d]", name, i), "member must not be empty")
			}
		}
	}
}

func (v *Validator) validateEntries(entries []MiddlewareEntry, path string) {
	for i := range entries {
		if strings.TrimSpace(entries[i].Ref) == "" {
			v.addError(fmt.Sprintf("%s[%d].ref", path, i), "middleware ref must not be empty")
		}
	}
}

func (v *Validator) validateGroup(group *GroupConfig, path, namePrefix string) {
	if group.Prefix != "" && !strings.HasPrefix(group.Prefix, "/") {
		v.addError(path+".prefix", "prefix must start with '/'")
	}
	v.validateEntries(group.Middleware, path+".middleware")

	prefix := namePrefix + group.Name
	for i := range group.Routes {
		v.validateRoute(&group.Routes[i], fmt.Sprintf("%s.routes[%d]", path, i), prefix, false)
	}
	for i := range group.Groups {
		v.validateGroup(&group.Groups[i], fmt.Sprintf("%s.groups[%d]", path, i), prefix)
	}
}

func (v *Validator) validateRoute(route *RouteConfig, path, namePrefix string, topLevel bool) {
	if len(route.Methods) == 0 {
		v.addError(path+".methods", "at least one method is required")
	}
	for i, m := range route.Methods {
		if m != "*" && !methodToken.MatchString(m) {
			v.addError(fmt.Sprintf("%s.methods[%d]", path, i), fmt.Sprintf("invalid method %q", m))
		}
	}

	if topLevel && route.Path == "" {
		v.addError(path+".path", "path is required")
	}
	if route.Handler == "" {
		v.addError(path+".handler", "handler is required")
	}

	if route.Name != "" {
		full := namePrefix + route.Name
		if prev, ok := v.names[full]; ok {
			v.addError(path+".name", fmt.Sprintf("duplicate route name %q (first declared at %s)", full, prev))
		} else {
			v.names[full] = path
		}
	}

	for i, p := range route.Ports {
		if p <= 0 || p > maxPort {
			v.addError(fmt.Sprintf("%s.ports[%d]", path, i), fmt.Sprintf("invalid port %d", p))
		}
	}
	if route.PortParam != "" {
		if len(route.Ports) > 0 {
			v.addError(path+".portParam", "ports and portParam are mutually exclusive")
		}
		if !paramName.MatchString(route.PortParam) {
			v.addError(path+".portParam", fmt.Sprintf("invalid parameter name %q", route.PortParam))
		}
	}

	v.validateSchemes(route.Schemes, path+".schemes")
	v.validateEntries(route.Middleware, path+".middleware")
}

func (v *Validator) validateSchemes(schemes []string, path string) {
	for i, s := range schemes {
		if strings.HasPrefix(s, "{") {
			if len(schemes) > 1 {
				v.addError(path, "a captured scheme must be the only entry")
			}
			name := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
			if !strings.HasSuffix(s, "}") || !paramName.MatchString(name) {
				v.addError(fmt.Sprintf("%s[%d]", path, i), fmt.Sprintf("invalid scheme parameter %q", s))
			}
			continue
		}
		if s == "" {
			v.addError(fmt.Sprintf("%s[%d]", path, i), "scheme must not be empty")
		}
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
