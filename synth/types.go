package synth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options configures code synthesis.
type Options struct {
	// Package is the import path of the package the generated code lives in.
	// Type visibility is computed relative to it.
	Package string

	// EagerForward forward-declares every identity that lies on a reference
	// cycle before building it. When false a placeholder is only emitted once
	// a cycle is actually hit (default: true).
	EagerForward bool

	// MaxDepth bounds the nesting of generated values. References count, so
	// a linked list of n nodes needs n levels. Zero disables the bound
	// (default: 500).
	MaxDepth int

	// Disabled lists adaptor names that are not registered.
	Disabled []string

	// Logging configuration
	LogLevel string // "error", "warn", "info", "debug" (default: "warn")
	Logger   Logger // overrides LogLevel when set
}

// DefaultOptions returns the default configuration for synthesis.
func DefaultOptions() Options {
	return Options{
		Package:      "main_test",
		EagerForward: true,
		MaxDepth:     500,
		LogLevel:     "warn",
	}
}

func (o Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return NewLogger(ParseLogLevel(o.LogLevel), nil)
}

// Config is the YAML form of Options.
//
//	package: example.com/shop
//	log_level: debug
//	eager_forward: false
//	adaptors:
//	  disable: [setup.large-list]
type Config struct {
	Package      string `yaml:"package"`
	LogLevel     string `yaml:"log_level"`
	EagerForward *bool  `yaml:"eager_forward"`
	MaxDepth     int    `yaml:"max_depth"`
	DataDir      string `yaml:"data_dir"`
	Adaptors     struct {
		Disable []string `yaml:"disable"`
	} `yaml:"adaptors"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply overlays the values set in c onto opts.
func (c *Config) Apply(opts Options) Options {
	if c == nil {
		return opts
	}
	if c.Package != "" {
		opts.Package = c.Package
	}
	if c.LogLevel != "" {
		opts.LogLevel = c.LogLevel
	}
	if c.EagerForward != nil {
		opts.EagerForward = *c.EagerForward
	}
	if c.MaxDepth > 0 {
		opts.MaxDepth = c.MaxDepth
	}
	opts.Disabled = append(opts.Disabled, c.Adaptors.Disable...)
	return opts
}
