package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"marketplace-storefront-api/internal/utils"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	CatalogPath string
	DataDir     string
	LogLevel    string
	Environment string

	// Resolver cache settings
	ResolverCacheTTL             string
	ResolverCacheCleanupInterval string

	// Session tokens: comma-separated token:userId pairs
	SessionKeys string

	// Catalog listing defaults
	DefaultPageSize string

	// Rate limiting settings
	RateLimitEnabled           string
	RateLimitType              string
	RateLimitRequestsPerMinute string
	RateLimitWindowMinutes     string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Load .env file if it exists.
	// This will not override existing environment variables.
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := &Config{
		Port:                         getEnvWithDefault("PORT", "8080"),
		CatalogPath:                  getEnvWithDefault("CATALOG_PATH", "data/catalog_services.json"),
		DataDir:                      getEnvWithDefault("DATA_DIR", "data"),
		LogLevel:                     getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:                  getEnvWithDefault("ENVIRONMENT", "development"),
		ResolverCacheTTL:             getEnvWithDefault("RESOLVER_CACHE_TTL", "5m"),
		ResolverCacheCleanupInterval: getEnvWithDefault("RESOLVER_CACHE_CLEANUP_INTERVAL", "1m"),
		SessionKeys:                  getEnvWithDefault("SESSION_KEYS", ""),
		DefaultPageSize:              getEnvWithDefault("DEFAULT_PAGE_SIZE", "12"),
		RateLimitEnabled:             getEnvWithDefault("RATE_LIMIT_ENABLED", "true"),
		RateLimitType:                getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:   getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "120"),
		RateLimitWindowMinutes:       getEnvWithDefault("RATE_LIMIT_WINDOW_MINUTES", "1"),
	}

	// Configure slog based on log level
	utils.SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"catalogPath", config.CatalogPath,
		"dataDir", config.DataDir,
		"resolverCacheTTL", config.ResolverCacheTTL,
		"resolverCacheCleanupInterval", config.ResolverCacheCleanupInterval,
		"defaultPageSize", config.DefaultPageSize,
		"rateLimitEnabled", config.RateLimitEnabled)

	return config
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
