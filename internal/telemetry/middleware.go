package telemetry

import (
	"net/http"
	"strings"
	"time"
)

// Middleware wraps HTTP handlers to collect request telemetry
type Middleware struct {
	telemetry *StorefrontTelemetry
}

// NewMiddleware creates a telemetry middleware
func NewMiddleware(telemetry *StorefrontTelemetry) *Middleware {
	return &Middleware{telemetry: telemetry}
}

// Handler returns the HTTP middleware function
func (tm *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		metrics := RequestMetrics{
			Method:     r.Method,
			Endpoint:   normalizeEndpoint(r.URL.Path),
			StatusCode: wrapper.statusCode,
			Duration:   time.Since(start),
		}

		ctx := r.Context()
		if wrapper.statusCode >= 400 {
			metrics.ErrorMessage = http.StatusText(wrapper.statusCode)
			tm.telemetry.RegisterRequestError(ctx, metrics)
		} else {
			tm.telemetry.RegisterRequestReceived(ctx, metrics)
		}
		tm.telemetry.RegisterRequestDuration(ctx, metrics)
	})
}

// responseWriterWrapper captures the response status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// normalizeEndpoint collapses path parameters so metric cardinality
// stays bounded: every service detail hit reports the same endpoint
// label regardless of which slug it carried.
func normalizeEndpoint(path string) string {
	switch {
	case path == "/health" || path == "/v1/services" || path == "/v1/cart" || path == "/v1/cart/items":
		return path
	case strings.HasPrefix(path, "/v1/services/"):
		return "/v1/services/{slugOrId}"
	case strings.HasPrefix(path, "/v1/cart/items/"):
		return "/v1/cart/items/{lineId}"
	case strings.HasPrefix(path, "/v1/session/"):
		return path
	default:
		return "other"
	}
}
