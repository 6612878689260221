// Package metrics documents the Prometheus metrics exposed by api-etl.
// Metrics are defined in their respective packages (fetcher, cache)
// via promauto to keep registration close to the instrumented code.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by api-etl.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetcher):
//   - apietl_requests_total{status} (Counter): API requests by HTTP status
//     ("network_error" for transport failures)
//   - apietl_request_duration_seconds (Histogram): request duration
//   - apietl_pages_fetched_total (Counter): non-empty pages fetched
//   - apietl_records_fetched_total (Counter): records collected across pages
//   - apietl_errors_total{class} (Counter): errors by class
//     (transport, http, rate_limit, decode)
//   - apietl_rate_limit_retries_total (Counter): 429 responses retried
//
// Cache Metrics (pkg/cache):
//   - apietl_cache_hits_total (Counter): pages served from cache
//   - apietl_cache_misses_total (Counter): cache misses
//   - apietl_cache_errors_total{operation} (Counter): cache operation errors
//
// Example Prometheus Queries:
//
//   # Rate-limit pressure
//   rate(apietl_rate_limit_retries_total[5m])
//
//   # Cache hit rate
//   rate(apietl_cache_hits_total[5m]) /
//   (rate(apietl_cache_hits_total[5m]) + rate(apietl_cache_misses_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(apietl_request_duration_seconds_bucket[5m]))
