package ch

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Config holds configuration for the ClickHouse stats sink
type Config struct {
	// clickhouse connection config
	Hosts       []string      `mapstructure:"hosts" yaml:"hosts"`
	Database    string        `mapstructure:"database" yaml:"database"`
	Username    string        `mapstructure:"username" yaml:"username"`
	Password    string        `mapstructure:"password" yaml:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	Debug       bool          `mapstructure:"debug" yaml:"debug"`
	// clickhouse settings (https://clickhouse.com/docs/en/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings" yaml:"settings"`

	// Table receives one row per cache per report
	// default: "cache_stats"
	Table string `mapstructure:"table" yaml:"table"`
	// CreateTable issues CREATE TABLE IF NOT EXISTS on startup
	CreateTable bool `mapstructure:"create_table" yaml:"create_table"`

	// FlushInterval is the longest a buffered snapshot waits before being written
	// default: 10s
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	// FlushSize triggers a write as soon as this many snapshots are buffered
	// default: 500
	FlushSize int `mapstructure:"flush_size" yaml:"flush_size"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database:      "default",
		Username:      "default",
		DialTimeout:   10 * time.Second,
		Table:         "cache_stats",
		FlushInterval: 10 * time.Second,
		FlushSize:     500,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Username == "" {
		c.Username = d.Username
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.Table == "" {
		c.Table = d.Table
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.FlushSize == 0 {
		c.FlushSize = d.FlushSize
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("hosts are required")
	}
	if c.Table == "" {
		return ErrInvalidConfig("table is required")
	}
	if c.FlushInterval <= 0 {
		return ErrInvalidConfig("flush_interval must be greater than 0")
	}
	if c.FlushSize <= 0 {
		return ErrInvalidConfig("flush_size must be greater than 0")
	}
	return nil
}
