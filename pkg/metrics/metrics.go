// Package metrics provides centralized Prometheus metrics access for the collector.
// All metrics are defined in their respective packages (client, cache, ratelimit,
// pipeline) to maintain modularity and avoid circular dependencies.
//
// This package documents the available metrics and serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Handler returns the HTTP handler exposing every metric registered with the
// default registerer, which promauto uses in the instrumented packages.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and a /health liveness check.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", Handler())
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Serve exposes Router on addr until ctx ends.
func Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - lol_ratelimit_grants_total{domain} (Counter): Requests permitted by the limiter
//   - lol_ratelimit_waits_total{domain} (Counter): Acquisitions that had to wait
//   - lol_ratelimit_wait_seconds{domain} (Histogram): Time spent waiting for the limiter
//
// Cache Metrics (pkg/cache):
//   - lol_cache_hits_total{endpoint} (Counter): Cache hits by endpoint
//   - lol_cache_misses_total{endpoint} (Counter): Cache misses by endpoint
//   - lol_cache_size_bytes (Gauge): Bytes written to the cache by this process
//   - lol_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - lol_requests_total{domain, status} (Counter): Requests by routing domain and HTTP status
//   - lol_request_duration_seconds{domain} (Histogram): Request duration by routing domain
//   - lol_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, malformed)
//   - lol_cache_served_total{domain} (Counter): Payloads served from the cache
//
// Retry Metrics (pkg/client):
//   - lol_retries_total{error_class} (Counter): Retry attempts by error class
//   - lol_retry_backoff_seconds{error_class} (Histogram): Sleep before a retry by error class
//   - lol_retry_exhausted_total{error_class} (Counter): Items that used every attempt
//
// Pipeline Metrics (pkg/pipeline):
//   - lol_pipeline_items_total{stage, domain, outcome} (Counter): Finished items by outcome
//     (contributed, empty, failed, malformed)
//   - lol_pipeline_run_duration_seconds{stage} (Histogram): Duration of complete runs
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(lol_cache_hits_total[5m])) /
//   (sum(rate(lol_cache_hits_total[5m])) + sum(rate(lol_cache_misses_total[5m])))
//
//   # Requests per domain per minute (ceiling 50 at 100 req / 2 min)
//   sum by (domain) (rate(lol_ratelimit_grants_total[1m])) * 60
//
//   # 429 share
//   sum(rate(lol_requests_total{status="429"}[5m])) / sum(rate(lol_requests_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(lol_request_duration_seconds_bucket[5m]))
//
//   # Failed items per stage
//   sum by (stage) (lol_pipeline_items_total{outcome="failed"})
