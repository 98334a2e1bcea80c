// Package config provides configuration loading and management for
// PulseMetrics. It supports loading configuration from YAML files with
// defaults applied for any unset values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// StorageMode represents the storage backend mode.
type StorageMode string

const (
	// StorageModeMemory uses in-memory implementations for all backends.
	StorageModeMemory StorageMode = "memory"
	// StorageModeStorage uses real backends (Redis, PostgreSQL, Kafka).
	StorageModeStorage StorageMode = "storage"
)

// IsValid returns true if the storage mode is valid.
func (m StorageMode) IsValid() bool {
	return m == StorageModeMemory || m == StorageModeStorage
}

// Config represents the complete application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Consumer ConsumerConfig `yaml:"consumer"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// StorageConfig holds the storage mode configuration.
type StorageConfig struct {
	Mode StorageMode `yaml:"mode"`
}

// UseMemory returns true if in-memory backends should be used.
func (c *StorageConfig) UseMemory() bool {
	return c.Mode == StorageModeMemory
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection settings. The same instance serves
// both the delivery event stream and the hot cache.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int32  `yaml:"max_open_conns"`
	MaxIdleConns int32  `yaml:"max_idle_conns"`
}

// KafkaConfig holds settings for the alert transition notification topic.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ConsumerConfig holds the stream consumption and batching settings.
type ConsumerConfig struct {
	// StreamKey is the Redis stream holding delivery result events.
	StreamKey string `yaml:"stream_key"`

	// Group is the durable consumer group name shared by all processes.
	Group string `yaml:"group"`

	// Name is this process's consumer identity within the group. When
	// empty, a unique name derived from the hostname is generated.
	Name string `yaml:"name"`

	// BatchSize is both the stream read count and the flush threshold.
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout flushes a non-empty batch even when BatchSize has not
	// been reached.
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// PollInterval bounds how long a read blocks waiting for new entries.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxRetries caps consecutive transient read/write failures before the
	// loop gives up and exits.
	MaxRetries int `yaml:"max_retries"`

	// DedupCacheSize bounds the in-memory duplicate-suppression cache.
	DedupCacheSize int `yaml:"dedup_cache_size"`
}

// AlertsConfig holds the system-default alert policy values.
type AlertsConfig struct {
	FailureRateThreshold    float64 `yaml:"failure_rate_threshold"`
	MinConsecutiveBuckets   int     `yaml:"min_consecutive_buckets"`
	EvaluationWindowSeconds int     `yaml:"evaluation_window_seconds"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from the specified YAML file path.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	// Clean the path to prevent path traversal attacks
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration with all defaults applied, without
// reading a file. Used by tests and by `-config ""`.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets sensible default values for configuration fields
// that are not explicitly set in the config file.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = StorageModeMemory
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 25
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "campaign-alerts"
	}

	if cfg.Consumer.StreamKey == "" {
		cfg.Consumer.StreamKey = "events:delivery"
	}
	if cfg.Consumer.Group == "" {
		cfg.Consumer.Group = "metrics-aggregator"
	}
	if cfg.Consumer.Name == "" {
		cfg.Consumer.Name = generateConsumerName()
	}
	if cfg.Consumer.BatchSize == 0 {
		cfg.Consumer.BatchSize = 100
	}
	if cfg.Consumer.BatchTimeout == 0 {
		cfg.Consumer.BatchTimeout = 5 * time.Second
	}
	if cfg.Consumer.PollInterval == 0 {
		cfg.Consumer.PollInterval = time.Second
	}
	if cfg.Consumer.MaxRetries == 0 {
		cfg.Consumer.MaxRetries = 3
	}
	if cfg.Consumer.DedupCacheSize == 0 {
		cfg.Consumer.DedupCacheSize = 100000
	}

	if cfg.Alerts.FailureRateThreshold == 0 {
		cfg.Alerts.FailureRateThreshold = 0.05
	}
	if cfg.Alerts.MinConsecutiveBuckets == 0 {
		cfg.Alerts.MinConsecutiveBuckets = 3
	}
	if cfg.Alerts.EvaluationWindowSeconds == 0 {
		cfg.Alerts.EvaluationWindowSeconds = 300
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
}

// generateConsumerName builds a unique consumer identity so that multiple
// processes joining the same group never collide.
func generateConsumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "pulsemetrics"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

// Address returns the full server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisAddr returns the Redis address in host:port format.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
