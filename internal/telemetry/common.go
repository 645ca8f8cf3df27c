package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry owns the OpenTelemetry meter provider and the exporter it
// feeds. The exporter is selected by the METRICS_EXPORTER environment
// variable: "scraper" serves a Prometheus scrape page on a side port,
// anything else sends OTLP over gRPC to the standard endpoint.
type Telemetry struct {
	server   *http.Server
	Provider *metric.MeterProvider
	meter    api.Meter
	ctx      context.Context
}

var once sync.Once

// InitMetrics initializes the meter provider once per process
func (t *Telemetry) InitMetrics(meterName string, ctx context.Context) {
	t.ctx = ctx

	once.Do(func() {
		if os.Getenv("METRICS_EXPORTER") == "scraper" {
			slog.Info("Starting metrics with scraper exporter")
			t.initScrapeMetrics(meterName)
		} else {
			slog.Info("Starting metrics with grpc exporter")
			// Exports to localhost:4317 unless
			// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT overrides it.
			t.initGRPCMetrics(meterName)
		}
	})
}

// Close flushes pending metrics and shuts down the scrape server if any
func (t *Telemetry) Close() {
	if t.Provider != nil {
		_ = t.Provider.ForceFlush(t.ctx)
	}
	if t.server != nil {
		_ = t.server.Shutdown(t.ctx)
		slog.Info("Metrics server shut down")
	}
}

func (t *Telemetry) initGRPCMetrics(meterName string) {
	exporter, err := otlpmetricgrpc.New(t.ctx)
	if err != nil {
		slog.Error("Creating gRPC metrics exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
}

func (t *Telemetry) initScrapeMetrics(meterName string) {
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating Prometheus scrape exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	go t.serveMetrics()
}

func (t *Telemetry) serveMetrics() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9080"
	}
	slog.Info("Serving metrics scrape page", "addr", addr, "path", "/metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	t.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server exited", "error", err)
	}
}
