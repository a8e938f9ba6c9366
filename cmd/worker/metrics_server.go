package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-agent/internal/app"
	"content-agent/internal/observability/logging"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ProviderHealthResponse represents the circuit state of every provider.
type ProviderHealthResponse struct {
	Healthy   bool                 `json:"healthy"`
	Providers []app.ProviderStatus `json:"providers"`
}

// providerStatuser reports per-provider circuit state. *app.Agent implements it.
type providerStatuser interface {
	ProviderStatuses() []app.ProviderStatus
	ProvidersReady() error
}

// newMetricsServer creates the Prometheus metrics HTTP server.
//
// The server exposes the following endpoints:
//   - GET /metrics - Prometheus metrics from every gatherer
//   - GET /health - Simple liveness probe (always returns 200 OK)
//   - GET /health/providers - Per-provider circuit breaker state
func newMetricsServer(port int, gatherer prometheus.Gatherer, providers providerStatuser) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/health/providers", providerHealthHandler(providers))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// serveMetrics runs server until ctx is cancelled, then shuts it down
// gracefully within 5 seconds.
func serveMetrics(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.String("addr", server.Addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		logger.Error("metrics server error", logging.Err(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("metrics server shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", logging.Err(err))
		return err
	}
	logger.Info("metrics server stopped")
	return nil
}

// healthHandler handles GET /health requests (liveness probe).
// Always returns 200 OK with {"status": "healthy"}.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}

// providerHealthHandler creates a handler for GET /health/providers.
// Returns 503 Service Unavailable when every guarded provider's circuit
// breaker is open, 200 OK otherwise.
func providerHealthHandler(providers providerStatuser) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		healthy := providers.ProvidersReady() == nil

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(ProviderHealthResponse{
			Healthy:   healthy,
			Providers: providers.ProviderStatuses(),
		})
	}
}
