package collectors

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetwatch"

var staleCollectors = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "collectors",
		Name:      "stale",
		Help:      "Stale collectors observed on the last liveness cycle",
	},
)

// recordStaleCount records the stale-collector count seen by a cycle.
func recordStaleCount(count int) {
	staleCollectors.Set(float64(count))
}
