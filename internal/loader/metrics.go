package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_loader_batches_total",
			Help: "Total number of batches dispatched",
		},
		[]string{"loader", "cardinality"},
	)

	batchKeys = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guild_loader_batch_keys",
			Help:    "Number of keys per dispatched batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"loader", "cardinality"},
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guild_loader_batch_duration_seconds",
			Help:    "Time spent in the batch fetch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"loader", "cardinality"},
	)

	batchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_loader_batch_failures_total",
			Help: "Total number of batches that failed",
		},
		[]string{"loader", "cardinality"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_loader_cache_hits_total",
			Help: "Total number of loads answered from the request cache",
		},
		[]string{"loader", "cardinality"},
	)
)
