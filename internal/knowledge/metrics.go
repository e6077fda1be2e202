package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artrix",
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of hybrid retrieval (dense + sparse + fusion)",
			Buckets:   prometheus.DefBuckets,
		},
	)

	retrievalCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artrix",
			Name:      "retrieval_candidates",
			Help:      "Fused candidate count per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40},
		},
	)

	searchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "search_errors_total",
			Help:      "Search failures by mode",
		},
		[]string{"mode"},
	)

	rerankCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "rerank_calls_total",
			Help:      "Cross-encoder rerank calls by outcome",
		},
		[]string{"status"},
	)

	rerankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artrix",
			Name:      "rerank_duration_seconds",
			Help:      "Duration of cross-encoder rerank calls",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
