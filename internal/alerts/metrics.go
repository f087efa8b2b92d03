package alerts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetwatch"

var (
	alertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Total alerts raised by severity",
		},
		[]string{"severity"},
	)

	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notifications_dispatched_total",
			Help:      "Total notification dispatch attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to deliver one notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	pendingNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notifications_pending",
			Help:      "Pending notifications observed on the last dispatch cycle",
		},
	)
)

// recordAlertCreated records a raised alert.
func recordAlertCreated(severity string) {
	alertsCreated.WithLabelValues(severity).Inc()
}

// recordDispatch records a dispatch attempt outcome.
func recordDispatch(channel, status string) {
	notificationsDispatched.WithLabelValues(channel, status).Inc()
}

// recordDispatchDuration records delivery latency.
func recordDispatchDuration(channel string, duration time.Duration) {
	dispatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// recordPendingCount records the pending backlog seen by a cycle.
func recordPendingCount(count int) {
	pendingNotifications.Set(float64(count))
}
