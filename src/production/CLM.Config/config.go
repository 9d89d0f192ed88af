package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names recognised by APP_ENV
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers recognised by STORE_DRIVER
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// Environment is "development" or "production"; controls error detail in responses
	Environment string `json:"environment"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Retention configuration
	Retention RetentionConfig `json:"retention"`

	// Query configuration
	Query QueryConfig `json:"query"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig holds storage-related configuration
type DatabaseConfig struct {
	Driver         string        `json:"driver"` // mongo or memory
	URI            string        `json:"uri"`
	DBName         string        `json:"db_name"`
	Collection     string        `json:"collection"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	OpTimeout      time.Duration `json:"op_timeout"`
	MaxPoolSize    uint64        `json:"max_pool_size"`
}

// RetentionConfig holds reading expiry configuration
type RetentionConfig struct {
	Window        time.Duration `json:"window"`
	SweepInterval time.Duration `json:"sweep_interval"` // memory store only
}

// QueryConfig holds read-side limits
type QueryConfig struct {
	DefaultLatestLimit int `json:"default_latest_limit"`
	DefaultRangeLimit  int `json:"default_range_limit"`
	MaxLimit           int `json:"max_limit"`
	DefaultStatsHours  int `json:"default_stats_hours"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	Enabled     bool          `json:"enabled"`
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	Topic       string        `json:"topic"`
	ErrorTopic  string        `json:"error_topic"`
	ClientID    string        `json:"client_id"`
	SharedGroup string        `json:"shared_group"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// A missing .env file is fine; variables may be set directly
	_ = godotenv.Load()

	config := &Config{
		Environment: strings.ToLower(getEnv("APP_ENV", EnvProduction)),
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			ReadTimeout:     getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDuration("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo)),
			URI:            getEnv("MONGODB_URI", "mongodb://mongodb:27017/climate_monitor"),
			DBName:         getEnv("DB_NAME", "climate_monitor"),
			Collection:     getEnv("COLL_NAME", "sensordatas"),
			ConnectTimeout: getDuration("MONGO_CONNECT_TIMEOUT", 20*time.Second),
			OpTimeout:      getDuration("MONGO_OP_TIMEOUT", 5*time.Second),
			MaxPoolSize:    uint64(getInt("MONGO_MAX_POOL_SIZE", 50)),
		},
		Retention: RetentionConfig{
			Window:        getDuration("RETENTION_WINDOW", 30*24*time.Hour),
			SweepInterval: getDuration("RETENTION_SWEEP_INTERVAL", time.Minute),
		},
		Query: QueryConfig{
			DefaultLatestLimit: getInt("QUERY_DEFAULT_LATEST_LIMIT", 10),
			DefaultRangeLimit:  getInt("QUERY_DEFAULT_RANGE_LIMIT", 1000),
			MaxLimit:           getInt("QUERY_MAX_LIMIT", 10000),
			DefaultStatsHours:  getInt("QUERY_DEFAULT_STATS_HOURS", 24),
		},
		MQTT: MQTTConfig{
			Enabled:     getBool("MQTT_ENABLED", false),
			BrokerHost:  getEnv("BROKER_HOST", "localhost"),
			BrokerPort:  getInt("BROKER_PORT", 1883),
			BrokerUser:  getEnv("BROKER_USER", ""),
			BrokerPass:  getEnv("BROKER_PASS", ""),
			UseTLS:      getBool("BROKER_TLS", false),
			CACertPath:  getEnv("BROKER_CA_FILE", ""),
			Topic:       getEnv("MQTT_TOPIC", "climate/+/readings"),
			ErrorTopic:  getEnv("MQTT_ERROR_TOPIC", "climate/errors"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "climate-monitor"),
			SharedGroup: getEnv("MQTT_SHARED_GROUP", ""),
			KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-ID"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	switch c.Database.Driver {
	case StoreDriverMongo:
		if c.Database.URI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverMongo, StoreDriverMemory, c.Database.Driver)
	}
	if c.Database.OpTimeout <= 0 {
		return fmt.Errorf("MONGO_OP_TIMEOUT must be positive")
	}
	if c.Retention.Window <= 0 {
		return fmt.Errorf("RETENTION_WINDOW must be positive")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("RETENTION_SWEEP_INTERVAL must be positive")
	}
	if c.Query.MaxLimit <= 0 {
		return fmt.Errorf("QUERY_MAX_LIMIT must be positive")
	}
	if c.Query.DefaultLatestLimit <= 0 || c.Query.DefaultRangeLimit <= 0 || c.Query.DefaultStatsHours <= 0 {
		return fmt.Errorf("query defaults must be positive")
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		return fmt.Errorf("MQTT_TOPIC is required when MQTT_ENABLED is set")
	}
	return nil
}

// IsDevelopment reports whether detailed error messages may be returned to clients
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
