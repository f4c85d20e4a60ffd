// Package config loads run configuration from defaults, an optional YAML
// file and PI_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"pibarrier/core"
	"pibarrier/internal/logging"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PI"

const (
	ImplBSP = "bsp"
	ImplSeq = "seq"
)

// Config holds all run configuration.
type Config struct {
	Threads       int    `yaml:"threads" split_words:"true"`
	Impl          string `yaml:"impl" split_words:"true"`
	CheckInterval uint64 `yaml:"check_interval" split_words:"true"`
	MaxIterations uint64 `yaml:"max_iterations" split_words:"true"`

	Logging LogConfig     `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
}

// MetricsConfig holds metrics output configuration. An empty File disables
// the metrics dump.
type MetricsConfig struct {
	File string `yaml:"file" split_words:"true"`
}

// Default returns default configuration.
func Default() Config {
	return Config{
		Threads:       core.DefaultThreads,
		Impl:          ImplBSP,
		CheckInterval: core.DefaultCheckInterval,
		MaxIterations: core.SignificanceLimit,
		Logging: LogConfig{
			Level:       "warn",
			Development: false,
		},
	}
}

// Load applies the YAML file at path (skipped when empty) and then the
// environment on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path, cfg); err != nil {
			return Config{}, err
		}
	}
	return ApplyEnv(cfg)
}

// LoadFile decodes the YAML file at path over base. Unknown keys are errors.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any PI_* variables that are set.
func ApplyEnv(cfg Config) (Config, error) {
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values the core does not check itself.
func Validate(cfg Config) error {
	if err := cfg.Options().Validate(); err != nil {
		return err
	}
	if cfg.CheckInterval == 0 {
		return fmt.Errorf("check interval must be positive: %w", core.ErrInvalidArgument)
	}
	if cfg.MaxIterations == 0 {
		return fmt.Errorf("max iterations must be positive: %w", core.ErrInvalidArgument)
	}
	switch cfg.Impl {
	case ImplBSP, ImplSeq:
	default:
		return fmt.Errorf("unknown impl %q: %w", cfg.Impl, core.ErrInvalidArgument)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging level %q: %w", cfg.Logging.Level, core.ErrInvalidArgument)
	}
	return nil
}

// Options converts cfg into core run options. Logger and Observer are left
// for the caller.
func (c Config) Options() core.Options {
	return core.Options{
		Threads:       c.Threads,
		CheckInterval: c.CheckInterval,
		MaxIterations: c.MaxIterations,
	}
}

// ParseThreads parses the positional thread count. Malformed, negative and
// out of range values are argument errors.
func ParseThreads(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("thread count %q: %w", s, core.ErrInvalidArgument)
	}
	if n < 1 || n > core.MaxThreads {
		return 0, fmt.Errorf("thread count %d not in [1, %d]: %w", n, core.MaxThreads, core.ErrInvalidArgument)
	}
	return int(n), nil
}
