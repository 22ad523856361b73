// ABOUTME: Entry point for the scenario analysis engine
// ABOUTME: Wires config, cache, capacity sources, scheduler, and the HTTP API

package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capacityworks/scenario-engine/cache"
	"github.com/capacityworks/scenario-engine/config"
	"github.com/capacityworks/scenario-engine/handlers"
	"github.com/capacityworks/scenario-engine/logger"
	"github.com/capacityworks/scenario-engine/middleware"
	"github.com/capacityworks/scenario-engine/ratelimit"
	"github.com/capacityworks/scenario-engine/services"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting scenario analysis engine")

	// Initialize cache
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	c := cache.New(cacheTTL)
	slog.Info("Cache initialized", "ttl", cacheTTL)

	// Build the live execution path when a backend is configured. Synthetic
	// mode works without one.
	live := buildLiveClient(cfg, c)

	sim := services.NewSimulationEngine()
	if cfg.SimulateLatency {
		sim = services.NewSimulationEngineWithLatency(400 * time.Millisecond)
	}

	scheduler := services.NewBatchScheduler(live, sim, cfg.BatchConcurrency, logger.Component("scheduler"))
	slog.Info("Scheduler initialized", "concurrency", cfg.BatchConcurrency, "live_backend", live != nil)

	// Initialize handlers
	h := handlers.NewHandler(cfg, c, scheduler)

	// Inbound per-IP rate limiting, separate from the outbound token bucket
	var limiter *middleware.RateLimiter
	if cfg.HTTPRateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTPRateLimitDefault, time.Minute)
	}
	rateLimit := middleware.RateLimit(limiter, middleware.ClientIP)

	mux := http.NewServeMux()
	for _, route := range h.Routes() {
		mux.HandleFunc(route.Method+" "+route.Path,
			middleware.Chain(route.Handler, h.EnableCORS, middleware.LogRequest, rateLimit))
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	// Start server
	addr := ":" + cfg.Port
	slog.Info("Server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// buildLiveClient assembles the retrying client over whichever backend is
// configured. The HTTP backend wins when both are set; vSphere is the
// on-premises fallback. Returns nil when neither is configured.
func buildLiveClient(cfg *config.Config, c *cache.Cache) *services.RetryingClient {
	var source services.CapacitySource
	switch {
	case cfg.CapacityAPIURL != "":
		source = services.NewCapacityClient(cfg.CapacityAPIURL, cfg.CapacityAPIToken, cfg.CapacityAllProxy, cfg.RequestTimeout, c)
		slog.Info("Capacity backend configured", "url", cfg.CapacityAPIURL, "proxied", cfg.CapacityAllProxy != "")
	case cfg.VSphereConfigured():
		source = services.NewVSphereSource(services.VSphereCredentials{
			Host:       cfg.VSphereHost,
			Username:   cfg.VSphereUsername,
			Password:   cfg.VSpherePassword,
			Datacenter: cfg.VSphereDatacenter,
			Insecure:   cfg.VSphereInsecure,
		})
		slog.Info("vSphere capacity source configured", "host", cfg.VSphereHost, "datacenter", cfg.VSphereDatacenter)
	default:
		slog.Warn("No live capacity backend configured, synthetic mode only")
		return nil
	}

	bucket := ratelimit.NewBucket(cfg.RateLimitCapacity, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	retryCfg := services.RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Timeout:     cfg.RequestTimeout,
	}
	return services.NewRetryingClient(source, bucket, retryCfg, logger.Component("capacity"))
}
