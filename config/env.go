package config

import (
	"strconv"
	"strings"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/logger"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CACHEKIT_"

// applyEnv overrides file values with CACHEKIT_* variables.
// Overrides for optional sections only apply when the section is configured.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := env("LOG_LEVEL"); ok {
		if c.Logger == nil {
			c.Logger = &logger.Config{}
		}
		c.Logger.Level = v
	}

	if v, ok := env("CACHE_KIND"); ok {
		if c.Cache == nil {
			c.Cache = &cache.Config{}
		}
		c.Cache.Kind = v
	}
	if v, ok := env("CACHE_MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ErrInvalidEnv(EnvPrefix+"CACHE_MAX_ENTRIES", v, err)
		}
		c.lruConfig().MaxEntries = n
	}
	if v, ok := env("CACHE_MAX_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ErrInvalidEnv(EnvPrefix+"CACHE_MAX_BYTES", v, err)
		}
		c.lruConfig().MaxBytes = n
	}

	if v, ok := env("KAFKA_BROKERS"); ok && c.Kafka != nil {
		brokers := splitList(v)
		c.Kafka.Brokers = brokers
		if c.Kafka.Producer != nil {
			c.Kafka.Producer.Brokers = brokers
		}
		if c.Kafka.Consumer != nil {
			c.Kafka.Consumer.Brokers = brokers
		}
	}

	if c.ClickHouse != nil {
		if v, ok := env("CLICKHOUSE_HOSTS"); ok {
			c.ClickHouse.Hosts = splitList(v)
		}
		if v, ok := env("CLICKHOUSE_PASSWORD"); ok {
			c.ClickHouse.Password = v
		}
	}

	if c.DB != nil {
		if v, ok := env("DB_HOST"); ok {
			c.DB.Host = v
		}
		if v, ok := env("DB_PASSWORD"); ok {
			c.DB.Password = v
		}
	}

	if v, ok := env("METRICS_ADDR"); ok {
		if c.Metrics == nil {
			c.Metrics = &MetricsConfig{}
		}
		c.Metrics.Addr = v
	}
	if v, ok := env("REPORT_SPEC"); ok {
		if c.Report == nil {
			c.Report = &ReportConfig{}
		}
		c.Report.Spec = v
	}
	return nil
}

func (c *Config) lruConfig() *cache.LRUConfig {
	if c.Cache == nil {
		c.Cache = &cache.Config{}
	}
	if c.Cache.LRU == nil {
		c.Cache.LRU = &cache.LRUConfig{}
	}
	return c.Cache.LRU
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
