package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	CareGo   CareGoConfig   `yaml:"carego"`
}

type DatabaseConfig struct {
	// DSN, если задан, имеет приоритет над host/port/...
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	OrderEventsTopicName    string `yaml:"order_events_topic_name"`
	LocationEventsTopicName string `yaml:"location_events_topic_name"`

	// Courier gateways publish raw location reports here; empty disables the consumer.
	LocationReportedTopicName string `yaml:"location_reported_topic_name"`
	ConsumerGroup             string `yaml:"consumer_group"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	AdminKeyHashes []string `yaml:"admin_key_hashes"`
	// Plaintext admin password, hashed with bcrypt at start-up. Prefer admin_key_hashes.
	AdminPassword string `yaml:"admin_password"`

	JWTSigningKey   string `yaml:"jwt_signing_key"`
	TokenTTLSeconds int    `yaml:"token_ttl_seconds"`

	MaxAttemptsPerMinute int `yaml:"max_attempts_per_minute"`
}

type CareGoConfig struct {
	HTTPAddr    string `yaml:"http_addr"`
	SwaggerPath string `yaml:"swagger_path"`
	LogLevel    string `yaml:"log_level"`

	TrackingViewTTLSeconds int  `yaml:"tracking_view_ttl_seconds"`
	MaxCodeAttempts        int  `yaml:"max_code_attempts"`
	SeedDemoOrder          bool `yaml:"seed_demo_order"`

	RelayPollIntervalSeconds int `yaml:"relay_poll_interval_seconds"`
	RelayBatchSize           int `yaml:"relay_batch_size"`
	RelayConcurrency         int `yaml:"relay_concurrency"`
	RelayLeaseSeconds        int `yaml:"relay_lease_seconds"`
	RelayBackoff1Seconds     int `yaml:"relay_backoff_1_seconds"`
	RelayBackoff2Seconds     int `yaml:"relay_backoff_2_seconds"`
	RelayBackoff3Seconds     int `yaml:"relay_backoff_3_seconds"`
	RelayBackoff4Seconds     int `yaml:"relay_backoff_4_seconds"`

	ConsumerRestartSeconds    int `yaml:"consumer_restart_seconds"`
	ConsumerRestartMaxSeconds int `yaml:"consumer_restart_max_seconds"`
}

// Environment variables that override values from the YAML file.
const (
	EnvDatabaseDSN   = "CAREGO_DATABASE_DSN"
	EnvHTTPAddr      = "CAREGO_HTTP_ADDR"
	EnvAdminPassword = "CAREGO_ADMIN_PASSWORD"
	EnvJWTSigningKey = "CAREGO_JWT_SIGNING_KEY"
	EnvLogLevel      = "CAREGO_LOG_LEVEL"
)

func LoadConfig(filename string) (*Config, error) {
	// .env опционален: в докере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config Config
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	}

	config.applyEnv()
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.CareGo.HTTPAddr = v
	}
	if v := os.Getenv(EnvAdminPassword); v != "" {
		c.Auth.AdminPassword = v
	}
	if v := os.Getenv(EnvJWTSigningKey); v != "" {
		c.Auth.JWTSigningKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.CareGo.LogLevel = v
	}
}

// ConnString returns the PostgreSQL connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}
