package invalidation

import (
	"fmt"
	"os"
)

// Config holds configuration for the invalidation bus
type Config struct {
	// Topic carries the invalidation events
	// default: "cachekit-invalidation"
	Topic string `mapstructure:"topic" yaml:"topic"`
	// Origin identifies this process so it can skip its own events
	// default: "<hostname>-<pid>"
	Origin string `mapstructure:"origin" yaml:"origin"`
	// Instance names the consumer group of this node and must survive restarts.
	// Nodes sharing a host need distinct values.
	// default: hostname
	Instance string `mapstructure:"instance" yaml:"instance"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Topic:    "cachekit-invalidation",
		Origin:   defaultOrigin(),
		Instance: hostname(),
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	if c.Topic == "" {
		c.Topic = "cachekit-invalidation"
	}
	if c.Origin == "" {
		c.Origin = defaultOrigin()
	}
	if c.Instance == "" {
		c.Instance = hostname()
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Topic == "" || c.Origin == "" {
		return ErrInvalidConfig
	}
	return nil
}

// ConsumerGroup derives a per-node consumer group from base, so every node
// receives every event instead of sharing partitions with its peers.
// The group is reused across restarts of the node.
func (c *Config) ConsumerGroup(base string) string {
	instance := c.Instance
	if instance == "" {
		instance = hostname()
	}
	return base + "-" + instance
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "cachekit"
	}
	return host
}

func defaultOrigin() string {
	return fmt.Sprintf("%s-%d", hostname(), os.Getpid())
}
