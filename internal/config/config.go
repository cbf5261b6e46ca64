package config

import "time"

// Defaults applied by DefaultConfig.
const (
	DefaultAPIVersion      = "avarouter.io/v1"
	DefaultKind            = "RouteTable"
	DefaultAddress         = ":8080"
	DefaultMetricsAddress  = ":9090"
	DefaultMetricsPath     = "/metrics"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// RouterConfig is the root of a route file.
type RouterConfig struct {
	APIVersion string     `yaml:"apiVersion" toml:"apiVersion" json:"apiVersion"`
	Kind       string     `yaml:"kind" toml:"kind" json:"kind"`
	Metadata   Metadata   `yaml:"metadata" toml:"metadata" json:"metadata"`
	Spec       RouterSpec `yaml:"spec" toml:"spec" json:"spec"`
}

// Metadata identifies a route table.
type Metadata struct {
	Name   string            `yaml:"name" toml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" toml:"labels" json:"labels,omitempty"`
}

// RouterSpec holds everything the process needs to serve a route table.
type RouterSpec struct {
	Server     ServerConfig     `yaml:"server" toml:"server" json:"server"`
	Router     RouterSettings   `yaml:"router" toml:"router" json:"router"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging" json:"logging"`
	Tracing    TracingConfig    `yaml:"tracing" toml:"tracing" json:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics" json:"metrics"`
	Cache      *CacheConfig     `yaml:"cache,omitempty" toml:"cache" json:"cache,omitempty"`
	Middleware MiddlewareConfig `yaml:"middleware" toml:"middleware" json:"middleware"`

	// Routes are registered before Groups; see the package
	// documentation on registration order.
	Routes []RouteConfig `yaml:"routes" toml:"routes" json:"routes"`
	Groups []GroupConfig `yaml:"groups,omitempty" toml:"groups" json:"groups,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" toml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" toml:"readTimeout" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" toml:"writeTimeout" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration `yaml:"idleTimeout,omitempty" toml:"idleTimeout" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" toml:"shutdownTimeout" json:"shutdownTimeout,omitempty"`
}

// RouterSettings toggles optional dispatch behavior.
type RouterSettings struct {
	// AutoOptions answers OPTIONS requests for paths that have no
	// explicit OPTIONS route. Defaults to true.
	AutoOptions *bool `yaml:"autoOptions,omitempty" toml:"autoOptions" json:"autoOptions,omitempty"`
}

// GetAutoOptions returns the effective AutoOptions value.
func (s RouterSettings) GetAutoOptions() bool {
	if s.AutoOptions == nil {
		return true
	}
	return *s.AutoOptions
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
	Output string `yaml:"output,omitempty" toml:"output" json:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" toml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" toml:"otlpEndpoint" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" toml:"samplingRate" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" toml:"serviceName" json:"serviceName,omitempty"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Address string `yaml:"address,omitempty" toml:"address" json:"address,omitempty"`
	Path    string `yaml:"path,omitempty" toml:"path" json:"path,omitempty"`
}

// DefaultConfig returns a RouterConfig with defaults filled in. The
// loader decodes route files on top of it.
func DefaultConfig() *RouterConfig {
	return &RouterConfig{
		APIVersion: DefaultAPIVersion,
		Kind:       DefaultKind,
		Spec: RouterSpec{
			Server: ServerConfig{
				Address:         DefaultAddress,
				ReadTimeout:     Duration(DefaultReadTimeout),
				WriteTimeout:    Duration(DefaultWriteTimeout),
				IdleTimeout:     Duration(DefaultIdleTimeout),
				ShutdownTimeout: Duration(DefaultShutdownTimeout),
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Tracing: TracingConfig{
				SamplingRate: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Address: DefaultMetricsAddress,
				Path:    DefaultMetricsPath,
			},
		},
	}
}

// CountRoutes returns the number of routes declared at the top level
// and in every nested group.
func (c *RouterConfig) CountRoutes() int {
	n := len(c.Spec.Routes)
	var walk func(groups []GroupConfig)
	walk = func(groups []GroupConfig) {
		for i := range groups {
			n += len(groups[i].Routes)
			walk(groups[i].Groups)
		}
	}
	walk(c.Spec.Groups)
	return n
}
