package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/clkernel/internal/gpu"
	"github.com/cwbudde/clkernel/internal/kernel"
)

// DefaultPath is the config file consulted when no --config flag is given.
const DefaultPath = "clkernel.yaml"

// Environment overrides applied after the file is read.
const (
	EnvRoot  = "CLKERNEL_ROOT"
	EnvStore = "CLKERNEL_STORE"
)

// Config holds all clkernel configuration.
type Config struct {
	// Root is the built-in source root; root, root/src and root/include are
	// always searched first.
	Root string `yaml:"root"`

	// SearchPath lists directories searched after those from OPENCL_KERNEL_PATH.
	SearchPath []string `yaml:"search_path"`

	// MaxIncludes caps local includes per kernel file.
	MaxIncludes int `yaml:"max_includes"`

	Build   BuildConfig   `yaml:"build"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig configures the OpenCL build step.
type BuildConfig struct {
	Options    string `yaml:"options"`     // base compiler options
	DeviceType string `yaml:"device_type"` // gpu, cpu, all (or any)
}

// StoreConfig configures where spliced sources are saved.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Root:        kernel.DefaultRoot,
		MaxIncludes: kernel.MaxIncludes,
		Build: BuildConfig{
			Options:    "-cl-kernel-arg-info",
			DeviceType: "gpu",
		},
		Store: StoreConfig{
			Dir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Debug("Config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if root := os.Getenv(EnvRoot); root != "" {
		c.Root = root
	}
	if dir := os.Getenv(EnvStore); dir != "" {
		c.Store.Dir = dir
	}
}

// Validate checks the configuration for values the tools cannot use.
func (c *Config) Validate() error {
	if c.MaxIncludes < 1 {
		return fmt.Errorf("max_includes must be at least 1, got %d", c.MaxIncludes)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (want json or text)", c.Logging.Format)
	}
	if _, err := gpu.ParseDeviceType(c.Build.DeviceType); err != nil {
		return err
	}
	return nil
}

// LoaderOptions returns the kernel loader options this configuration describes.
func (c *Config) LoaderOptions() kernel.Options {
	return kernel.Options{
		Root:        c.Root,
		Dirs:        c.SearchPath,
		MaxIncludes: c.MaxIncludes,
	}
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
