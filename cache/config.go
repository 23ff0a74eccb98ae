package cache

import "time"

const (
	// KindMemory selects the unbounded MemoryCache
	KindMemory = "memory"
	// KindLRU selects the bounded LRUCache
	KindLRU = "lru"
)

// Config selects and configures a store for New
type Config struct {
	// Kind is the store implementation, "memory" or "lru"
	// default: "lru"
	Kind string `mapstructure:"kind" yaml:"kind"`
	// Memory configures the unbounded store (used when Kind is "memory")
	Memory *MemoryConfig `mapstructure:"memory" yaml:"memory"`
	// LRU configures the bounded store (used when Kind is "lru")
	LRU *LRUConfig `mapstructure:"lru" yaml:"lru"`
}

// DefaultConfig returns the default configuration for New
func DefaultConfig() *Config {
	return &Config{
		Kind: KindLRU,
		LRU:  DefaultLRUConfig(),
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	if c.Kind == "" {
		c.Kind = KindLRU
	}
	switch c.Kind {
	case KindMemory:
		if c.Memory == nil {
			c.Memory = DefaultMemoryConfig()
		} else {
			c.Memory.MergeDefaults()
		}
	case KindLRU:
		if c.LRU == nil {
			c.LRU = DefaultLRUConfig()
		} else {
			c.LRU.MergeDefaults()
		}
	}
	return c
}

// StoreName returns the name of the selected store, "" when it is not configured
func (c *Config) StoreName() string {
	switch c.Kind {
	case KindMemory:
		if c.Memory != nil {
			return c.Memory.Name
		}
	case KindLRU:
		if c.LRU != nil {
			return c.LRU.Name
		}
	}
	return ""
}

// Validate validates the configuration of the selected store
func (c *Config) Validate() error {
	switch c.Kind {
	case KindMemory:
		if c.Memory == nil {
			return ErrInvalidConfig
		}
		return c.Memory.Validate()
	case KindLRU:
		if c.LRU == nil {
			return ErrInvalidConfig
		}
		return c.LRU.Validate()
	default:
		return ErrInvalidKind(c.Kind)
	}
}

// MemoryConfig holds configuration for MemoryCache
type MemoryConfig struct {
	// Name identifies the cache in logs and metrics
	// default: "memory"
	Name string `mapstructure:"name" yaml:"name"`
	// DefaultTTL is the freshness window used when a Get call does not override it
	// default: 5 * time.Minute
	DefaultTTL time.Duration `mapstructure:"default_ttl" yaml:"default_ttl"`
}

// DefaultMemoryConfig returns the default configuration for MemoryCache
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		Name:       KindMemory,
		DefaultTTL: 5 * time.Minute,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *MemoryConfig) MergeDefaults() *MemoryConfig {
	defaults := DefaultMemoryConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = defaults.DefaultTTL
	}
	return c
}

// Validate validates the configuration
func (c *MemoryConfig) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.DefaultTTL <= 0 {
		return ErrInvalidTTL(c.DefaultTTL)
	}
	return nil
}

// LRUConfig holds configuration for LRUCache
type LRUConfig struct {
	// Name identifies the cache in logs and metrics
	// default: "lru"
	Name string `mapstructure:"name" yaml:"name"`
	// MaxEntries is the maximum number of entries held at once
	// default: 500
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
	// DefaultTTL is the freshness window used when a Get call does not override it
	// default: 5 * time.Minute
	DefaultTTL time.Duration `mapstructure:"default_ttl" yaml:"default_ttl"`
	// MaxBytes caps the approximate aggregate size of cached values, 0 disables the limit
	// default: 0
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// DefaultLRUConfig returns the default configuration for LRUCache
func DefaultLRUConfig() *LRUConfig {
	return &LRUConfig{
		Name:       KindLRU,
		MaxEntries: 500,
		DefaultTTL: 5 * time.Minute,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *LRUConfig) MergeDefaults() *LRUConfig {
	defaults := DefaultLRUConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = defaults.MaxEntries
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = defaults.DefaultTTL
	}
	return c
}

// Validate validates the configuration
func (c *LRUConfig) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.MaxEntries <= 0 {
		return ErrInvalidMaxEntries(c.MaxEntries)
	}
	if c.DefaultTTL <= 0 {
		return ErrInvalidTTL(c.DefaultTTL)
	}
	if c.MaxBytes < 0 {
		return ErrInvalidMaxBytes(c.MaxBytes)
	}
	return nil
}
