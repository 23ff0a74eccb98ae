package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ConsumerConfig is the configuration for kafka consumer
type ConsumerConfig struct {
	// kafka connection config
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	GroupID string   `mapstructure:"group_id" yaml:"group_id"`
	Topics  []string `mapstructure:"topics" yaml:"topics"`

	// Handler attempts per message before the failure is logged and skipped
	// default: 3
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// Auto offset reset policy: "earliest" or "latest"
	// default: "latest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset" yaml:"auto_offset_reset"`

	// Enable auto commit of offsets
	// default: false
	EnableAutoCommit bool `mapstructure:"enable_auto_commit" yaml:"enable_auto_commit"`

	// Auto commit interval (only used when EnableAutoCommit is true)
	// default: 5s
	AutoCommitInterval time.Duration `mapstructure:"auto_commit_interval" yaml:"auto_commit_interval"`

	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout" yaml:"session_timeout"`

	// Max poll interval - maximum time between two polls
	// default: 120s
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval" yaml:"max_poll_interval"`

	// PollTimeout bounds each poll so the loop notices cancellation
	// default: 500ms
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`

	// only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" yaml:"security_protocol"`

	// Debug enables librdkafka consumer debug logs
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DefaultConsumerConfig returns the default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		MaxRetries:         3,
		AutoOffsetReset:    "latest",
		EnableAutoCommit:   false,
		AutoCommitInterval: 5 * time.Second,
		SessionTimeout:     30 * time.Second,
		MaxPollInterval:    120 * time.Second,
		PollTimeout:        500 * time.Millisecond,
		SecurityProtocol:   "PLAINTEXT",
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *ConsumerConfig) MergeDefaults() *ConsumerConfig {
	d := DefaultConsumerConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = d.AutoOffsetReset
	}
	if c.AutoCommitInterval == 0 {
		c.AutoCommitInterval = d.AutoCommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = d.MaxPollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = d.SecurityProtocol
	}
	return c
}

// Validate validates the configuration
func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.GroupID == "" {
		return ErrInvalidConfig("group_id is required")
	}
	if len(c.Topics) == 0 {
		return ErrInvalidConfig("topics are required")
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidConfig("max_retries must be greater than 0")
	}
	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return ErrInvalidConfig(
			fmt.Sprintf("invalid auto_offset_reset: %s, must be either 'earliest' or 'latest'", c.AutoOffsetReset),
		)
	}
	if c.EnableAutoCommit && c.AutoCommitInterval <= 0 {
		return ErrInvalidConfig("auto_commit_interval must be greater than 0 when enable_auto_commit is true")
	}
	if c.SessionTimeout <= 0 {
		return ErrInvalidConfig("session_timeout must be greater than 0")
	}
	if c.MaxPollInterval <= 0 {
		return ErrInvalidConfig("max_poll_interval must be greater than 0")
	}
	if c.PollTimeout <= 0 {
		return ErrInvalidConfig("poll_timeout must be greater than 0")
	}
	return nil
}

// BuildConfigMap converts the configuration to librdkafka properties
func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(c.Brokers, ","),
		"group.id":             c.GroupID,
		"auto.offset.reset":    strings.ToLower(c.AutoOffsetReset),
		"enable.auto.commit":   c.EnableAutoCommit,
		"session.timeout.ms":   int(c.SessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(c.MaxPollInterval.Milliseconds()),
		"security.protocol":    c.SecurityProtocol,
	}

	if c.EnableAutoCommit {
		_ = configMap.SetKey("auto.commit.interval.ms", int(c.AutoCommitInterval.Milliseconds()))
	}
	if c.Debug {
		_ = configMap.SetKey("debug", "consumer,cgrp,topic,fetch")
	}
	return configMap
}

// ProducerConfig is the configuration for kafka producer
type ProducerConfig struct {
	// kafka cluster brokers
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`

	// Optional: identifies this producer in broker logs and metrics
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// Acks required before a message counts as committed: "all", "1" or "0"
	// default: "all"
	Acks string `mapstructure:"acks" yaml:"acks"`

	// Compression codec: none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression" yaml:"compression"`

	// LingerMs is how long the producer waits to batch messages
	// default: 0 (send immediately)
	LingerMs int `mapstructure:"linger_ms" yaml:"linger_ms"`

	// default: 100KB
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" yaml:"security_protocol"`

	// default: 3
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// FlushTimeout bounds how long Close waits for outstanding deliveries
	// default: 10s
	FlushTimeout time.Duration `mapstructure:"flush_timeout" yaml:"flush_timeout"`
}

// DefaultProducerConfig returns the default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Acks:             "all",
		Compression:      "none",
		LingerMs:         0,
		BatchSize:        100 * 1024,
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		FlushTimeout:     10 * time.Second,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	d := DefaultProducerConfig()
	if p.Acks == "" {
		p.Acks = d.Acks
	}
	if p.Compression == "" {
		p.Compression = d.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = d.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = d.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = d.FlushTimeout
	}
	return p
}

// Validate validates the configuration
func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	switch strings.ToLower(p.Acks) {
	case "all", "-1", "0", "1":
	default:
		return ErrInvalidConfig(fmt.Sprintf("invalid acks: %s", p.Acks))
	}
	if p.LingerMs < 0 {
		return ErrInvalidConfig("linger_ms must not be negative")
	}
	if p.FlushTimeout <= 0 {
		return ErrInvalidConfig("flush_timeout must be greater than 0")
	}
	return nil
}

// BuildConfigMap converts the configuration to librdkafka properties
func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}

	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}
	return configMap
}
