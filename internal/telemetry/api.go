package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StorefrontTelemetry provides metrics for the storefront API endpoints
type StorefrontTelemetry struct {
	meter metric.Meter

	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	// Domain counters
	catalogQueryCounter metric.Int64Counter
	cartMutationCounter metric.Int64Counter
	gateStagingCounter  metric.Int64Counter
}

// RequestMetrics contains the telemetry data for one request
type RequestMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
}

// NewStorefrontTelemetry creates an uninitialized telemetry instance
func NewStorefrontTelemetry() *StorefrontTelemetry {
	return &StorefrontTelemetry{}
}

// Initialize sets up all telemetry instruments
func (t *StorefrontTelemetry) Initialize(ctx context.Context) error {
	slog.Info("Initializing storefront API telemetry")

	t.meter = otel.Meter("marketplace-storefront-api")

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"storefront_api_requests_total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"storefront_api_errors_total",
		metric.WithDescription("Total number of API errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"storefront_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.catalogQueryCounter, err = t.meter.Int64Counter(
		"storefront_catalog_queries_total",
		metric.WithDescription("Total number of catalog listing queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create catalog query counter: %w", err)
	}

	t.cartMutationCounter, err = t.meter.Int64Counter(
		"storefront_cart_mutations_total",
		metric.WithDescription("Total number of cart mutations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cart mutation counter: %w", err)
	}

	t.gateStagingCounter, err = t.meter.Int64Counter(
		"storefront_gate_stagings_total",
		metric.WithDescription("Total number of add-to-cart attempts staged pending authentication"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gate staging counter: %w", err)
	}

	slog.Info("Storefront API telemetry initialized successfully")
	return nil
}

// RegisterRequestReceived records a successful API request
func (t *StorefrontTelemetry) RegisterRequestReceived(ctx context.Context, m RequestMetrics) {
	if t.requestCounter == nil {
		return
	}

	// Low-cardinality attributes only
	t.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	))
}

// RegisterRequestError records a failed API request
func (t *StorefrontTelemetry) RegisterRequestError(ctx context.Context, m RequestMetrics) {
	if t.errorCounter == nil {
		return
	}

	t.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	))

	slog.Debug("Recorded API request error",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"error", m.ErrorMessage)
}

// RegisterRequestDuration records the duration of an API request
func (t *StorefrontTelemetry) RegisterRequestDuration(ctx context.Context, m RequestMetrics) {
	if t.durationHistogram == nil {
		return
	}

	t.durationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	))
}

// RegisterCatalogQuery records one listing query with its result size
func (t *StorefrontTelemetry) RegisterCatalogQuery(ctx context.Context, sortKey string, resultCount int) {
	if t.catalogQueryCounter == nil {
		return
	}
	t.catalogQueryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sort_key", sortKey),
		attribute.Bool("empty_result", resultCount == 0),
	))
}

// RegisterCartMutation records one cart mutation by operation name
func (t *StorefrontTelemetry) RegisterCartMutation(ctx context.Context, operation string, persisted bool) {
	if t.cartMutationCounter == nil {
		return
	}
	t.cartMutationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("persisted", persisted),
	))
}

// RegisterGateStaging records one anonymous add-to-cart staging
func (t *StorefrontTelemetry) RegisterGateStaging(ctx context.Context) {
	if t.gateStagingCounter == nil {
		return
	}
	t.gateStagingCounter.Add(ctx, 1)
}
