package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"marketplace-storefront-api/internal/catalog"
	"marketplace-storefront-api/internal/config"
	"marketplace-storefront-api/internal/events"
	"marketplace-storefront-api/internal/handlers"
	"marketplace-storefront-api/internal/middleware"
	"marketplace-storefront-api/internal/session"
	"marketplace-storefront-api/internal/storage"
	"marketplace-storefront-api/internal/telemetry"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Marketplace Storefront API", "version", "1.0.0")

	// Initialize OpenTelemetry metrics
	ctx := context.Background()
	otelTelemetry := &telemetry.Telemetry{}
	otelTelemetry.InitMetrics("marketplace-storefront-api", ctx)

	apiTelemetry := telemetry.NewStorefrontTelemetry()
	if err := apiTelemetry.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return
	}

	// Load the catalog listing
	serviceCatalog, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load catalog", "path", cfg.CatalogPath, "error", err)
		return
	}

	// Resolver with lookup cache
	cacheTTL, err := time.ParseDuration(cfg.ResolverCacheTTL)
	if err != nil {
		slog.Warn("Invalid resolver cache TTL, using default", "provided", cfg.ResolverCacheTTL, "error", err)
		cacheTTL = 5 * time.Minute
	}
	cleanupInterval, err := time.ParseDuration(cfg.ResolverCacheCleanupInterval)
	if err != nil {
		slog.Warn("Invalid resolver cache cleanup interval, using default", "provided", cfg.ResolverCacheCleanupInterval, "error", err)
		cleanupInterval = time.Minute
	}
	resolver := catalog.NewResolver(serviceCatalog, cacheTTL, cleanupInterval)

	// Cart persistence and change notifications
	cartStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize cart storage", "data_dir", cfg.DataDir, "error", err)
		return
	}
	hub := events.NewHub()
	sessionManager := session.NewManager(cartStorage, hub)
	slog.Info("Cart storage initialized", "data_dir", cfg.DataDir)

	// Initialize handlers
	defaultPageSize, err := strconv.Atoi(cfg.DefaultPageSize)
	if err != nil || defaultPageSize <= 0 {
		slog.Warn("Invalid default page size, using default", "provided", cfg.DefaultPageSize)
		defaultPageSize = catalog.DefaultPageSize
	}
	catalogHandler := handlers.NewCatalogHandler(serviceCatalog, resolver, apiTelemetry, defaultPageSize)
	cartHandler := handlers.NewCartHandler(sessionManager, resolver, apiTelemetry)
	healthHandler := handlers.NewHealthHandler()
	slog.Debug("HTTP handlers initialized")

	r := mux.NewRouter()

	// Telemetry middleware wraps everything
	telemetryMiddleware := telemetry.NewMiddleware(apiTelemetry)
	r.Use(telemetryMiddleware.Handler)

	// Rate limiting middleware
	rateLimitConfig := middleware.ParseRateLimitConfig(cfg)
	var rateLimiter *middleware.RateLimiter
	if rateLimitConfig.Enabled {
		rateLimiter = middleware.NewRateLimiter(rateLimitConfig)
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		slog.Info("Rate limiting middleware enabled")
	} else {
		slog.Info("Rate limiting middleware disabled")
	}

	// Session token middleware: resolves the authentication signal but
	// never rejects, because anonymous browsing is allowed.
	sessionTokens := middleware.ParseSessionKeys(cfg.SessionKeys)
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.SessionAuth(sessionTokens))

	// Catalog routes
	v1.HandleFunc("/services", catalogHandler.ListServices).Methods("GET")
	v1.HandleFunc("/services/{slugOrId}", catalogHandler.GetService).Methods("GET")

	// Cart routes
	v1.HandleFunc("/cart", cartHandler.GetCart).Methods("GET")
	v1.HandleFunc("/cart", cartHandler.ClearCart).Methods("DELETE")
	v1.HandleFunc("/cart/items", cartHandler.AddItem).Methods("POST")
	v1.HandleFunc("/cart/items/{lineId}", cartHandler.UpdateItem).Methods("PATCH")
	v1.HandleFunc("/cart/items/{lineId}", cartHandler.RemoveItem).Methods("DELETE")

	// Session gate routes
	v1.HandleFunc("/session/resolve", cartHandler.ResolveSession).Methods("POST")
	v1.HandleFunc("/session/anonymous", cartHandler.ProceedAnonymously).Methods("POST")
	v1.HandleFunc("/session/decline", cartHandler.DeclineSession).Methods("POST")

	// Health check endpoint (no session required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	slog.Info("Starting HTTP server",
		"port", cfg.Port,
		"environment", cfg.Environment)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionManager.Close()
	resolver.Stop()
	if rateLimiter != nil {
		rateLimiter.Stop()
	}

	otelTelemetry.Close()
	slog.Info("Telemetry shutdown completed")

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
