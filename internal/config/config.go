package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	ServiceName string         `yaml:"service_name"`
	ServicePort int            `yaml:"service_port"`
	LogLevel    string         `yaml:"log_level"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	RabbitMQ    RabbitMQConfig `yaml:"rabbitmq"`
	InfluxDB    InfluxDBConfig `yaml:"influxdb"`
}

// HTTPConfig holds REST API settings
type HTTPConfig struct {
	// CORSOrigins lists allowed origins; empty allows any origin without credentials
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection and pool settings
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL              string `yaml:"url"`
	EventsExchange   string `yaml:"events_exchange"`
	IngestExchange   string `yaml:"ingest_exchange"`
	IngestQueue      string `yaml:"ingest_queue"`
	IngestRoutingKey string `yaml:"ingest_routing_key"`
	DLQQueue         string `yaml:"dlq_queue"`
	PrefetchCount    int    `yaml:"prefetch_count"`
}

// Enabled reports whether a broker is configured
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// InfluxDBConfig holds settings for the optional reading mirror
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether the mirror is configured
func (c InfluxDBConfig) Enabled() bool {
	return c.URL != ""
}

// Load loads configuration from an optional YAML file named by CONFIG_FILE,
// then from environment variables, which take precedence
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if c.ServicePort <= 0 || c.ServicePort > 65535 {
		return fmt.Errorf("SERVICE_PORT must be between 1 and 65535, got %d", c.ServicePort)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS (%d) exceeds DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.InfluxDB.Enabled() && (c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		return fmt.Errorf("INFLUXDB_ORG and INFLUXDB_BUCKET are required when INFLUXDB_URL is set")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		ServiceName: "device-registry",
		ServicePort: 8080,
		LogLevel:    "info",
		HTTP: HTTPConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        100,
			MinConns:        10,
			MaxConnLifetime: 300 * time.Second,
			MaxConnIdleTime: 60 * time.Second,
			ConnectTimeout:  30 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			EventsExchange:   "device-registry.events.exchange",
			IngestExchange:   "device-registry.ingest.exchange",
			IngestQueue:      "device-registry.ingest.queue",
			IngestRoutingKey: "sensor.reading.raw",
			DLQQueue:         "device-registry.ingest.dlq",
			PrefetchCount:    10,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.ServicePort = getEnvAsInt("SERVICE_PORT", cfg.ServicePort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.HTTP.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.HTTP.CORSOrigins)
	cfg.HTTP.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout)
	cfg.HTTP.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout)
	cfg.HTTP.ShutdownTimeout = getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxConns = int32(getEnvAsInt("DATABASE_MAX_CONNS", int(cfg.Database.MaxConns)))
	cfg.Database.MinConns = int32(getEnvAsInt("DATABASE_MIN_CONNS", int(cfg.Database.MinConns)))
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.MaxConnIdleTime = getEnvAsDuration("DATABASE_MAX_CONN_IDLE_TIME", cfg.Database.MaxConnIdleTime)
	cfg.Database.ConnectTimeout = getEnvAsDuration("DATABASE_CONNECT_TIMEOUT", cfg.Database.ConnectTimeout)
	cfg.Database.AutoMigrate = getEnvAsBool("DATABASE_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.EventsExchange = getEnv("RABBITMQ_EVENTS_EXCHANGE", cfg.RabbitMQ.EventsExchange)
	cfg.RabbitMQ.IngestExchange = getEnv("RABBITMQ_INGEST_EXCHANGE", cfg.RabbitMQ.IngestExchange)
	cfg.RabbitMQ.IngestQueue = getEnv("RABBITMQ_INGEST_QUEUE", cfg.RabbitMQ.IngestQueue)
	cfg.RabbitMQ.IngestRoutingKey = getEnv("RABBITMQ_INGEST_ROUTING_KEY", cfg.RabbitMQ.IngestRoutingKey)
	cfg.RabbitMQ.DLQQueue = getEnv("RABBITMQ_DLQ_QUEUE", cfg.RabbitMQ.DLQQueue)
	cfg.RabbitMQ.PrefetchCount = getEnvAsInt("RABBITMQ_PREFETCH", cfg.RabbitMQ.PrefetchCount)

	cfg.InfluxDB.URL = getEnv("INFLUXDB_URL", cfg.InfluxDB.URL)
	cfg.InfluxDB.Token = getEnv("INFLUXDB_TOKEN", cfg.InfluxDB.Token)
	cfg.InfluxDB.Org = getEnv("INFLUXDB_ORG", cfg.InfluxDB.Org)
	cfg.InfluxDB.Bucket = getEnv("INFLUXDB_BUCKET", cfg.InfluxDB.Bucket)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
