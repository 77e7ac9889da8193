package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Issuer claim for tokens

	Algorithm  string // JWT signing algorithm (RS256, EdDSA) (default: EdDSA)
	RSABits    int    // RSA key size for RS256 (default: 4096)
	NumKeys    int    // Number of signing keys to generate (default: 3, max: 10)
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	SeedDemoData bool   // Seed the demo users when the user table is empty

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               os.Getenv("AUTH_ISSUER"),
		Algorithm:            getEnvOrDefault("AUTH_ALGORITHM", "EdDSA"),
		RSABits:              getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		NumKeys:              getEnvIntOrDefault("AUTH_NUM_KEYS", 0),
		AccessTTL:            getEnvDurationOrDefault("AUTH_ACCESS_TTL", 0),
		RefreshTTL:           getEnvDurationOrDefault("AUTH_REFRESH_TTL", 0),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		SeedDemoData:         getEnvOrDefault("AUTH_SEED_DEMO_DATA", "true") == "true",
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "eventauth"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept durations like "1h" or "30m".
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as seconds, matching how token lifetimes are
	// usually configured.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
