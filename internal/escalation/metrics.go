package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "artrix",
		Name:      "escalation_events_total",
		Help:      "Escalation events by reason and delivery outcome",
	},
	[]string{"reason", "outcome"},
)
