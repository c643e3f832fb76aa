package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"wagernotify/database"

	"github.com/joho/godotenv"
)

// Push providers
const (
	PushProviderFCM = "fcm"
	PushProviderLog = "log"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	DatabaseMaxConns int32

	// Trigger transport
	NATSServers string // NATS server addresses (comma-separated); empty disables the consumer
	HTTPAddr    string // Listen address for HTTP triggers; empty disables the server

	// Push delivery
	PushProvider            string // "fcm" or "log"
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Pipeline tuning
	DispatchConcurrency   int
	DispatchRatePerSecond float64
	LookupTimeout         time.Duration
	DedupEnabled          bool
	ReceiptRetention      time.Duration // How long dedup receipts are kept

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// OpenTelemetry
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NATSServerList splits NATSServers into individual addresses
func (c *Config) NATSServerList() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// Load reads configuration from the environment, after loading .env when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers: os.Getenv("NATS_SERVERS"),
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),

		PushProvider:            strings.ToLower(getEnvWithDefault("PUSH_PROVIDER", PushProviderFCM)),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		DispatchConcurrency: 8,
		LookupTimeout:       5 * time.Second,
		ReceiptRetention:    7 * 24 * time.Hour,

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "wagernotify"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 30000,

		DedupEnabled: os.Getenv("DEDUP_ENABLED") == "true",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 32); err == nil {
			config.DatabaseMaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("DISPATCH_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.DispatchConcurrency = parsed
		}
	}
	if v := os.Getenv("DISPATCH_RATE_PER_SECOND"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			config.DispatchRatePerSecond = parsed
		}
	}
	if v := os.Getenv("LOOKUP_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.LookupTimeout = parsed
		}
	}
	if v := os.Getenv("RECEIPT_RETENTION"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.ReceiptRetention = parsed
		}
	}
	if v := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.NATSServers == "" && c.HTTPAddr == "" {
		return fmt.Errorf("at least one of NATS_SERVERS or HTTP_ADDR is required")
	}

	switch c.PushProvider {
	case PushProviderFCM:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when PUSH_PROVIDER is fcm")
		}
	case PushProviderLog:
	default:
		return fmt.Errorf("unknown PUSH_PROVIDER %q", c.PushProvider)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		PushProvider:        PushProviderLog,
		DispatchConcurrency: 2,
		LookupTimeout:       time.Second,
		LogLevel:            "debug",
		LogFormat:           "text",
		OTelExporterType:    "none",
	}
}
