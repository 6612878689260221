package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// CacheHits counts pages served from cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apietl_cache_hits_total",
		Help: "Total page cache hits",
	})

	// CacheMisses counts cache lookups that found nothing usable.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apietl_cache_misses_total",
		Help: "Total page cache misses",
	})

	// CacheErrors counts failed cache operations by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apietl_cache_errors_total",
		Help: "Total cache operation errors",
	}, []string{"operation"})
)
