// Package config loads linkcast settings from defaults, an optional TOML
// file and LINKCAST_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "linkcast.toml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: LINKCAST_DATABASE__PATH sets database.path.
const EnvPrefix = "LINKCAST_"

// Config is the full linkcast configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Engine    EngineConfig    `koanf:"engine"`
	Overview  OverviewConfig  `koanf:"overview"`
	Output    OutputConfig    `koanf:"output"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	// Verbosity: 0 warn, 1 info, 2 debug, 3+ trace.
	Verbosity int `koanf:"verbosity"`
}

type EngineConfig struct {
	// MaxSteps caps child visits per cascade.
	MaxSteps int `koanf:"max_steps"`
}

type OverviewConfig struct {
	// MaxChildren is the child count above which link overviews print a
	// counter instead of listing nodes.
	MaxChildren int `koanf:"max_children"`
}

type OutputConfig struct {
	Format string `koanf:"format"`
}

type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector. Empty disables tracing.
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`

	// MetricsFile receives the engine counters in Prometheus text format
	// when a command finishes. Empty disables it.
	MetricsFile string `koanf:"metrics_file"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"database.path":          "linkcast.db",
		"log.verbosity":          0,
		"engine.max_steps":       10000,
		"overview.max_children":  5,
		"output.format":          "text",
		"telemetry.endpoint":     "",
		"telemetry.service_name": "linkcast",
		"telemetry.metrics_file": "",
	}
}

// Load reads the configuration. An explicit path must exist; with an empty
// path DefaultFile is used if present.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Unmarshal; env values arrive as strings.
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if c.Engine.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("engine.max_steps must be positive, got %d", c.Engine.MaxSteps))
	}
	if c.Overview.MaxChildren < 0 {
		errs = append(errs, fmt.Errorf("overview.max_children must not be negative, got %d", c.Overview.MaxChildren))
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format must be text or json, got %q", c.Output.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
