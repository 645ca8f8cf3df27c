package middleware

import (
	"log/slog"
	"strconv"
	"strings"

	"marketplace-storefront-api/internal/config"
)

// ParseRateLimitConfig parses rate limiting configuration from the
// config struct
func ParseRateLimitConfig(cfg *config.Config) RateLimitConfig {
	rateLimitConfig := RateLimitConfig{
		Enabled:           parseBool(cfg.RateLimitEnabled, true),
		Type:              parseRateLimitType(cfg.RateLimitType),
		RequestsPerMinute: parseInt(cfg.RateLimitRequestsPerMinute, 120),
		WindowMinutes:     parseInt(cfg.RateLimitWindowMinutes, 1),
	}

	if rateLimitConfig.RequestsPerMinute <= 0 {
		slog.Warn("Invalid rate limit requests per minute, using default",
			"configured", cfg.RateLimitRequestsPerMinute, "default", 120)
		rateLimitConfig.RequestsPerMinute = 120
	}

	if rateLimitConfig.WindowMinutes <= 0 {
		slog.Warn("Invalid rate limit window minutes, using default",
			"configured", cfg.RateLimitWindowMinutes, "default", 1)
		rateLimitConfig.WindowMinutes = 1
	}

	slog.Info("Rate limiting configuration parsed",
		"enabled", rateLimitConfig.Enabled,
		"type", rateLimitConfig.Type,
		"requests_per_minute", rateLimitConfig.RequestsPerMinute,
		"window_minutes", rateLimitConfig.WindowMinutes)

	return rateLimitConfig
}

func parseRateLimitType(value string) RateLimitType {
	switch strings.ToLower(value) {
	case "ip":
		return RateLimitTypeIP
	case "global":
		return RateLimitTypeGlobal
	case "both":
		return RateLimitTypeBoth
	default:
		slog.Warn("Invalid rate limit type, using default", "value", value, "default", RateLimitTypeIP)
		return RateLimitTypeIP
	}
}

// parseBool parses a string to bool with a default value
func parseBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "1", "yes", "on", "enabled":
		return true
	case "false", "0", "no", "off", "disabled":
		return false
	default:
		slog.Warn("Invalid boolean value, using default",
			"value", value, "default", defaultValue)
		return defaultValue
	}
}

// parseInt parses a string to int with a default value
func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer value, using default",
			"value", value, "default", defaultValue, "error", err)
		return defaultValue
	}
	return parsed
}
