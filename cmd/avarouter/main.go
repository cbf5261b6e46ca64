// Package main is the entry point for the avarouter demo server. It
// serves the routes of a route file and reloads them when the file
// changes.
package main

import (
	"cmp"
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags(os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(logConfig(flags, config.LoggingConfig{}))
	configPath, cfg := loadAndValidateConfig(flags.configPath, logger)

	logger = initLogger(logConfig(flags, cfg.Spec.Logging))
	defer func() { _ = logger.Sync() }()

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}

	run(app, configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags(args []string) cliFlags {
	fs := flag.NewFlagSet("avarouter", flag.ExitOnError)
	configPath := fs.String("config", getEnvOrDefault("AVAROUTER_CONFIG_PATH", "configs/routes.yaml"),
		"Path to the route file (.yaml, .yml or .toml)")
	logLevel := fs.String("log-level", getEnvOrDefault("AVAROUTER_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the route file")
	logFormat := fs.String("log-format", getEnvOrDefault("AVAROUTER_LOG_FORMAT", ""),
		"Log format (json, console); overrides the route file")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("avarouter version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// logConfig merges the logging section of the route file with the
// flags; flags win, empty values keep the defaults.
func logConfig(flags cliFlags, file config.LoggingConfig) observability.LogConfig {
	cfg := observability.DefaultLogConfig()
	cfg.Level = cmp.Or(flags.logLevel, file.Level, cfg.Level)
	cfg.Format = cmp.Or(flags.logFormat, file.Format, cfg.Format)
	cfg.Output = cmp.Or(file.Output, cfg.Output)
	return cfg
}

// initLogger initializes the process logger.
func initLogger(cfg observability.LogConfig) observability.Logger {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig resolves, loads and validates the route file.
func loadAndValidateConfig(path string, logger observability.Logger) (string, *config.RouterConfig) {
	logger.Info("starting avarouter",
		observability.String("version", version),
		observability.String("config", path),
	)

	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		logger.Fatal("failed to find route file", observability.Error(err))
	}

	cfg, err := config.LoadConfig(resolved)
	if err != nil {
		logger.Fatal("failed to load route file", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid route file", observability.Error(err))
	}

	logger.Info("route file loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.String("path", resolved),
		observability.Int("routes", cfg.CountRoutes()),
		observability.Int("groups", len(cfg.Spec.Groups)),
	)
	return resolved, cfg
}
