package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Kalshi API
	KalshiWSURL          string
	KalshiRESTURL        string
	KalshiAccessKeyID    string
	KalshiPrivateKeyPath string

	// Polymarket API
	PolymarketWSURL string

	// WebSocket
	WSPingInterval      time.Duration
	WSReconnectInterval time.Duration
	WSMaxRetries        int

	// Ingest
	IngestQueueCapacity int

	// Arbitrage Detection
	MinSpreadThreshold float64
	MinTradeSize       float64

	// Ticker Publishing
	PublishInterval time.Duration

	// Coordination
	CoordPrepareTimeout time.Duration

	// Broadcast
	ClientSendTimeout time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Kalshi API defaults
		KalshiWSURL:          getEnvOrDefault("KALSHI_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		KalshiRESTURL:        getEnvOrDefault("KALSHI_REST_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiAccessKeyID:    os.Getenv("KALSHI_ACCESS_KEY_ID"),
		KalshiPrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),

		// Polymarket API defaults
		PolymarketWSURL: getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		// WebSocket defaults
		WSPingInterval:      getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInterval: getDurationOrDefault("WS_RECONNECT_INTERVAL", 2*time.Second),
		WSMaxRetries:        getIntOrDefault("WS_MAX_RETRIES", 3),

		// Ingest defaults
		IngestQueueCapacity: getIntOrDefault("INGEST_QUEUE_CAPACITY", 1000),

		// Arbitrage defaults
		MinSpreadThreshold: getFloat64OrDefault("MIN_SPREAD_THRESHOLD", 0.02),
		MinTradeSize:       getFloat64OrDefault("MIN_TRADE_SIZE", 10.0),

		// Ticker publishing defaults
		PublishInterval: getDurationOrDefault("PUBLISH_INTERVAL", 1*time.Second),

		// Coordination defaults
		CoordPrepareTimeout: getDurationOrDefault("COORD_PREPARE_TIMEOUT", 30*time.Second),

		// Broadcast defaults
		ClientSendTimeout: getDurationOrDefault("CLIENT_SEND_TIMEOUT", 5*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polykalshi"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polykalshi123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polykalshi"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.KalshiWSURL == "" {
		return fmt.Errorf("KALSHI_WS_URL cannot be empty")
	}

	if c.PolymarketWSURL == "" {
		return fmt.Errorf("POLYMARKET_WS_URL cannot be empty")
	}

	if c.MinSpreadThreshold < 0 || c.MinSpreadThreshold >= 1.0 {
		return fmt.Errorf("MIN_SPREAD_THRESHOLD must be in [0, 1.0), got %f", c.MinSpreadThreshold)
	}

	if c.MinTradeSize < 0 {
		return fmt.Errorf("MIN_TRADE_SIZE cannot be negative, got %f", c.MinTradeSize)
	}

	if c.IngestQueueCapacity <= 0 {
		return fmt.Errorf("INGEST_QUEUE_CAPACITY must be positive, got %d", c.IngestQueueCapacity)
	}

	if c.PublishInterval <= 0 {
		return fmt.Errorf("PUBLISH_INTERVAL must be positive, got %s", c.PublishInterval)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN builds the lib/pq connection string from the Postgres fields.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
