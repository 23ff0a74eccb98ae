package db

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config is the configuration for the vendor database
type Config struct {
	Host string `mapstructure:"host" yaml:"host"`
	// default: 3306
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	// default: 25
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	// default: 10
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	// default: 30m
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// default: 10m
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	// LogLevel is the gorm log level: silent, error, warn or info
	// default: "warn"
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// SlowThreshold marks queries slower than this as slow sql
	// default: 1s
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`
	// default: "utf8mb4"
	Charset string `mapstructure:"charset" yaml:"charset"`
	// Loc is the time zone used to parse DATETIME columns
	// default: "Local"
	Loc string `mapstructure:"loc" yaml:"loc"`
}

// DSN formats the go-sql-driver data source name
func (c *Config) DSN() (string, error) {
	loc, err := time.LoadLocation(c.Loc)
	if err != nil {
		return "", ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}

	dsn := mysql.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.Loc = loc
	dsn.Params = map[string]string{"charset": c.Charset}
	return dsn.FormatDSN(), nil
}

// DefaultConfig returns the default configuration for the database
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
		Charset:         "utf8mb4",
		Loc:             "Local",
	}
}

var validLogLevels = []string{"silent", "error", "warn", "info"}

// Validate validates the configuration for the database
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrInvalidConfig("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidConfig(fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.User == "" {
		return ErrInvalidConfig("user is required")
	}
	if c.Database == "" {
		return ErrInvalidConfig("database is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return ErrInvalidConfig("max_idle_conns cannot be greater than max_open_conns")
	}
	if !slices.ContainsFunc(validLogLevels, func(level string) bool {
		return strings.EqualFold(c.LogLevel, level)
	}) {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	return nil
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = defaults.SlowThreshold
	}
	if c.Charset == "" {
		c.Charset = defaults.Charset
	}
	if c.Loc == "" {
		c.Loc = defaults.Loc
	}
	return c
}
