package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "sessions_closed_total",
			Help:      "Sessions closed by billing event type",
		},
		[]string{"event_type"},
	)

	usagePublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artrix",
			Name:      "usage_publish_failures_total",
			Help:      "Usage summary publishes that failed and were requeued",
		},
	)
)
