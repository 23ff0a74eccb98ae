package logger

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	validEncodings = []string{"json", "console"}
)

// Config is the configuration for the logger
type Config struct {
	// Level, debug, info, warn, error, dpanic, panic, fatal
	// default: "info"
	Level string `mapstructure:"level" yaml:"level"`
	// Encoding, json or console
	// default: "json"
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Output paths
	// default: []string{"stdout"}
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths"`
	// Error output paths
	// default: []string{"stderr"}
	ErrorOutputPaths []string `mapstructure:"error_output_paths" yaml:"error_output_paths"`
	// InitialFields are added to every entry, e.g. service or region
	InitialFields map[string]string `mapstructure:"initial_fields" yaml:"initial_fields"`
	// Sampling caps repeated messages per second; nil logs everything.
	// Invalidation and eviction debug lines are the usual reason to enable it.
	Sampling *SamplingConfig `mapstructure:"sampling" yaml:"sampling"`
}

// SamplingConfig keeps the first Initial entries with the same level and message
// each second, then every Thereafter-th one
type SamplingConfig struct {
	Initial    int `mapstructure:"initial" yaml:"initial"`
	Thereafter int `mapstructure:"thereafter" yaml:"thereafter"`
}

// DefaultConfig returns the default configuration for the logger
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = defaults.OutputPaths
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = defaults.ErrorOutputPaths
	}
	if c.Sampling != nil {
		if c.Sampling.Initial == 0 {
			c.Sampling.Initial = 100
		}
		if c.Sampling.Thereafter == 0 {
			c.Sampling.Thereafter = 100
		}
	}
	return c
}

// Validate validates the configuration for the logger
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return ErrInvalidLevel(c.Level, fmt.Errorf("must be one of: %s", strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validEncodings, c.Encoding) {
		return ErrInvalidEncoding(c.Encoding)
	}
	if c.Sampling != nil && (c.Sampling.Initial < 0 || c.Sampling.Thereafter < 0) {
		return ErrInvalidSampling(c.Sampling.Initial, c.Sampling.Thereafter)
	}
	return nil
}
