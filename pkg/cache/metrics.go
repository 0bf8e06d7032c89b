package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by endpoint
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lol_cache_hits_total",
			Help: "Total number of payload cache hits",
		},
		[]string{"endpoint"}, // "match", "timeline", "match-ids"
	)

	// CacheMisses tracks cache misses by endpoint
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lol_cache_misses_total",
			Help: "Total number of payload cache misses",
		},
		[]string{"endpoint"},
	)

	// CacheSize tracks bytes written to the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lol_cache_size_bytes",
			Help: "Bytes written to the payload cache by this process",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lol_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
