// Package metrics provides centralized Prometheus metrics registry for the indexer.
// All metrics are defined in their respective packages (client, pagination,
// indexer, store, runstate, ratelimit) to maintain modularity and avoid
// circular dependencies.
//
// This package provides the /metrics handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the indexer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - parldok_upstream_requests_total{kind, status} (Counter): Upstream requests by kind (session, list) and HTTP status
//   - parldok_upstream_request_duration_seconds{kind} (Histogram): Request duration by kind
//   - parldok_upstream_errors_total{class} (Counter): Errors by class (client, server, network, parse)
//
// Retry Metrics (pkg/client, only with retry.max_attempts > 1):
//   - parldok_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - parldok_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - parldok_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pacing Metrics (pkg/ratelimit):
//   - parldok_ratelimit_wait_seconds (Histogram): Time spent waiting for the limiter
//   - parldok_ratelimit_pauses_total (Counter): Pauses caused by 429/503 with Retry-After
//
// Page Metrics (pkg/pagination):
//   - parldok_pages_total{outcome} (Counter): Fetched pages by outcome (fulfilled, rejected)
//   - parldok_page_fetch_duration_seconds (Histogram): Single page fetch duration
//   - parldok_pages_in_flight (Gauge): Page fetches currently holding a permit
//
// Run Metrics (pkg/indexer):
//   - parldok_runs_total{result} (Counter): Runs by result (ok, error)
//   - parldok_records_extracted_total (Counter): Records extracted
//   - parldok_run_duration_seconds (Histogram): Run duration up to aggregation
//
// Persistence Metrics (pkg/store):
//   - parldok_store_inserts_total{backend, result} (Counter): Inserts by backend and result
//
// Run State Metrics (pkg/runstate):
//   - parldok_run_lock_acquired_total (Counter): Acquired run locks
//   - parldok_run_lock_contended_total (Counter): Triggers rejected because a run was in progress
//   - parldok_run_reports_saved_total (Counter): Stored run reports
//   - parldok_runstate_errors_total{operation} (Counter): Redis operation errors
//
// Example Prometheus Queries:
//
//   # Page failure rate
//   sum(rate(parldok_pages_total{outcome="rejected"}[1h])) / sum(rate(parldok_pages_total[1h]))
//
//   # Runs without data
//   increase(parldok_runs_total{result="error"}[1d]) > 0
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(parldok_upstream_request_duration_seconds_bucket[5m]))
//
//   # Persistence failures
//   rate(parldok_store_inserts_total{result="error"}[1h])
