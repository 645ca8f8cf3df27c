package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"marketplace-storefront-api/internal/models"
)

// RateLimitType defines the type of rate limiting
type RateLimitType string

const (
	RateLimitTypeIP     RateLimitType = "ip"
	RateLimitTypeGlobal RateLimitType = "global"
	RateLimitTypeBoth   RateLimitType = "both"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	Type              RateLimitType
	RequestsPerMinute int
	WindowMinutes     int
}

// rateLimitEntry tracks one fixed window
type rateLimitEntry struct {
	mutex     sync.Mutex
	count     int
	resetTime time.Time
}

// RateLimiter manages per-IP and global fixed-window rate limits
type RateLimiter struct {
	config        RateLimitConfig
	ipLimits      map[string]*rateLimitEntry
	globalLimit   *rateLimitEntry
	mutex         sync.Mutex
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// RateLimitInfo contains rate limit information for response headers
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:      config,
		ipLimits:    make(map[string]*rateLimitEntry),
		globalLimit: &rateLimitEntry{},
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(time.Minute)
	go rl.cleanupExpiredEntries()

	slog.Info("Rate limiter initialized",
		"enabled", config.Enabled,
		"type", config.Type,
		"requests_per_minute", config.RequestsPerMinute,
		"window_minutes", config.WindowMinutes)

	return rl
}

// Stop stops the rate limiter and its cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
	close(rl.stopCleanup)
}

// IsAllowed checks whether a request from clientIP is within limits
func (rl *RateLimiter) IsAllowed(clientIP string) (bool, *RateLimitInfo) {
	if !rl.config.Enabled {
		return true, &RateLimitInfo{Limit: -1, Remaining: -1}
	}

	now := time.Now()
	window := time.Duration(rl.config.WindowMinutes) * time.Minute
	limit := rl.config.RequestsPerMinute

	ipAllowed, globalAllowed := true, true
	var ipInfo, globalInfo *RateLimitInfo

	if rl.config.Type == RateLimitTypeIP || rl.config.Type == RateLimitTypeBoth {
		ipAllowed, ipInfo = rl.check(rl.entryFor(clientIP), limit, window, now)
	}
	if rl.config.Type == RateLimitTypeGlobal || rl.config.Type == RateLimitTypeBoth {
		globalAllowed, globalInfo = rl.check(rl.globalLimit, limit, window, now)
	}

	switch rl.config.Type {
	case RateLimitTypeIP:
		return ipAllowed, ipInfo
	case RateLimitTypeGlobal:
		return globalAllowed, globalInfo
	default:
		// Most restrictive wins for "both"
		info := ipInfo
		if globalInfo != nil && (ipInfo == nil || globalInfo.Remaining < ipInfo.Remaining) {
			info = globalInfo
		}
		return ipAllowed && globalAllowed, info
	}
}

func (rl *RateLimiter) entryFor(clientIP string) *rateLimitEntry {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, exists := rl.ipLimits[clientIP]
	if !exists {
		entry = &rateLimitEntry{}
		rl.ipLimits[clientIP] = entry
	}
	return entry
}

func (rl *RateLimiter) check(entry *rateLimitEntry, limit int, window time.Duration, now time.Time) (bool, *RateLimitInfo) {
	entry.mutex.Lock()
	defer entry.mutex.Unlock()

	if now.After(entry.resetTime) {
		entry.count = 0
		entry.resetTime = now.Add(window)
	}

	info := &RateLimitInfo{
		Limit:     limit,
		Remaining: limit - entry.count - 1,
		ResetTime: entry.resetTime,
	}

	if entry.count >= limit {
		return false, info
	}

	entry.count++
	info.Remaining = limit - entry.count
	return true, info
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			now := time.Now()
			rl.mutex.Lock()
			for ip, entry := range rl.ipLimits {
				entry.mutex.Lock()
				expired := now.After(entry.resetTime)
				entry.mutex.Unlock()
				if expired {
					delete(rl.ipLimits, ip)
				}
			}
			rl.mutex.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// RateLimitMiddleware creates a rate limiting middleware using an
// existing rate limiter
func RateLimitMiddleware(rateLimiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks are never rate limited
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := GetClientIP(r)
			allowed, info := rateLimiter.IsAllowed(clientIP)

			setRateLimitHeaders(w, info)

			if !allowed {
				slog.Warn("Rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method,
					"limit", info.Limit,
					"reset_time", info.ResetTime.Format(time.RFC3339))

				writeRateLimitErrorResponse(w, info)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP extracts the client IP address from the request,
// preferring proxy headers over RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if !info.ResetTime.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func writeRateLimitErrorResponse(w http.ResponseWriter, info *RateLimitInfo) {
	w.Header().Set("Content-Type", "application/json")

	if !info.ResetTime.IsZero() {
		retryAfter := fmt.Sprintf("%.0f", time.Until(info.ResetTime).Seconds())
		w.Header().Set("Retry-After", retryAfter)
	}
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    "rate_limit_exceeded",
		Message: "Rate limit exceeded. Please try again later.",
		Details: []models.ErrorDetail{
			{
				Field: "rate_limit",
				Issue: fmt.Sprintf("Exceeded %d requests per window", info.Limit),
			},
		},
	})
}
