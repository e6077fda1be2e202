package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "turns_total",
			Help:      "Processed turns by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	turnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artrix",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn processing duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
	)

	confidenceObserved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artrix",
			Name:      "turn_confidence",
			Help:      "Confidence scores of domain query turns",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "escalations_total",
			Help:      "Escalations by reason",
		},
		[]string{"reason"},
	)
)
