// Package config loads the cachekit process configuration.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/ch"
	"github.com/dailyyoga/cachekit/db"
	"github.com/dailyyoga/cachekit/invalidation"
	"github.com/dailyyoga/cachekit/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration of a cachekit process.
// Kafka, ClickHouse and DB are optional; a nil section disables the component.
type Config struct {
	Logger     *logger.Config `mapstructure:"logger" yaml:"logger"`
	Cache      *cache.Config  `mapstructure:"cache" yaml:"cache"`
	Kafka      *KafkaConfig   `mapstructure:"kafka" yaml:"kafka"`
	ClickHouse *ch.Config     `mapstructure:"clickhouse" yaml:"clickhouse"`
	DB         *db.Config     `mapstructure:"db" yaml:"db"`
	Metrics    *MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Report     *ReportConfig  `mapstructure:"report" yaml:"report"`
}

// KafkaConfig configures the invalidation bus.
// Without a producer invalidations stay local; without a consumer peers' events are ignored.
type KafkaConfig struct {
	// Brokers is copied into the producer and consumer when they leave theirs empty
	Brokers      []string              `mapstructure:"brokers" yaml:"brokers"`
	Producer     *kafka.ProducerConfig `mapstructure:"producer" yaml:"producer"`
	Consumer     *kafka.ConsumerConfig `mapstructure:"consumer" yaml:"consumer"`
	Invalidation *invalidation.Config  `mapstructure:"invalidation" yaml:"invalidation"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	// default: ":9090"
	Addr string `mapstructure:"addr" yaml:"addr"`
	// default: "/metrics"
	Path      string `mapstructure:"path" yaml:"path"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// ReportConfig configures the periodic stats report
type ReportConfig struct {
	// Spec is a cron spec with a leading seconds field
	// default: "0 * * * * *"
	Spec string `mapstructure:"spec" yaml:"spec"`
	// Host tags the rows written to the stats sink
	// default: os.Hostname()
	Host string `mapstructure:"host" yaml:"host"`
}

// DefaultConfig returns a config with every mandatory section set to its defaults
func DefaultConfig() *Config {
	return (&Config{}).MergeDefaults()
}

// Load reads the YAML file at path, loads the .env file next to it when present,
// applies CACHEKIT_* environment overrides, merges defaults and validates
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadFile(path, err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ErrLoadEnv(envPath, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies environment overrides, merges defaults and validates
func Parse(data []byte) (*Config, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ErrParse(err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	if c.Logger == nil {
		c.Logger = logger.DefaultConfig()
	} else {
		c.Logger.MergeDefaults()
	}
	if c.Cache == nil {
		c.Cache = cache.DefaultConfig()
	} else {
		c.Cache.MergeDefaults()
	}
	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	c.Metrics.MergeDefaults()
	if c.Report == nil {
		c.Report = &ReportConfig{}
	}
	c.Report.MergeDefaults()

	if c.Kafka != nil {
		c.Kafka.MergeDefaults()
	}
	if c.ClickHouse != nil {
		c.ClickHouse.MergeDefaults()
	}
	if c.DB != nil {
		c.DB.MergeDefaults()
	}
	return c
}

// Validate validates every present section
func (c *Config) Validate() error {
	if c.Logger == nil || c.Cache == nil || c.Metrics == nil || c.Report == nil {
		return ErrInvalidConfig("logger, cache, metrics and report sections are required")
	}
	if err := c.Logger.Validate(); err != nil {
		return ErrInvalidSection("logger", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return ErrInvalidSection("cache", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return ErrInvalidSection("metrics", err)
	}
	if err := c.Report.Validate(); err != nil {
		return ErrInvalidSection("report", err)
	}
	if c.Kafka != nil {
		if err := c.Kafka.Validate(); err != nil {
			return ErrInvalidSection("kafka", err)
		}
	}
	if c.ClickHouse != nil {
		if err := c.ClickHouse.Validate(); err != nil {
			return ErrInvalidSection("clickhouse", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Validate(); err != nil {
			return ErrInvalidSection("db", err)
		}
	}
	return nil
}

// MergeDefaults fills empty fields with default values and returns the config.
// Consumers default to the invalidation topic and the "cachekit" base group.
func (k *KafkaConfig) MergeDefaults() *KafkaConfig {
	if k.Invalidation == nil {
		k.Invalidation = invalidation.DefaultConfig()
	} else {
		k.Invalidation.MergeDefaults()
	}
	if k.Producer != nil {
		if len(k.Producer.Brokers) == 0 {
			k.Producer.Brokers = k.Brokers
		}
		k.Producer.MergeDefaults()
	}
	if k.Consumer != nil {
		if len(k.Consumer.Brokers) == 0 {
			k.Consumer.Brokers = k.Brokers
		}
		if len(k.Consumer.Topics) == 0 {
			k.Consumer.Topics = []string{k.Invalidation.Topic}
		}
		if k.Consumer.GroupID == "" {
			k.Consumer.GroupID = "cachekit"
		}
		k.Consumer.MergeDefaults()
	}
	return k
}

// Validate validates the configuration
func (k *KafkaConfig) Validate() error {
	if k.Producer == nil && k.Consumer == nil {
		return ErrInvalidConfig("kafka needs a producer or a consumer")
	}
	if k.Invalidation == nil {
		return ErrInvalidConfig("kafka invalidation is required")
	}
	if err := k.Invalidation.Validate(); err != nil {
		return err
	}
	if k.Producer != nil {
		if err := k.Producer.Validate(); err != nil {
			return err
		}
	}
	if k.Consumer != nil {
		if err := k.Consumer.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MergeDefaults fills empty fields with default values and returns the config
func (m *MetricsConfig) MergeDefaults() *MetricsConfig {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
	return m
}

// Validate validates the configuration
func (m *MetricsConfig) Validate() error {
	if m.Addr == "" {
		return ErrInvalidConfig("metrics addr is required")
	}
	if len(m.Path) == 0 || m.Path[0] != '/' {
		return ErrInvalidConfig("metrics path must start with '/'")
	}
	return nil
}

// MergeDefaults fills empty fields with default values and returns the config
func (r *ReportConfig) MergeDefaults() *ReportConfig {
	if r.Spec == "" {
		r.Spec = "0 * * * * *"
	}
	if r.Host == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "cachekit"
		}
		r.Host = host
	}
	return r
}

// Validate validates the configuration; the cron expression is parsed by the scheduler
func (r *ReportConfig) Validate() error {
	if r.Spec == "" {
		return ErrInvalidConfig("report spec is required")
	}
	return nil
}
