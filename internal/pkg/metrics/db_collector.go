package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordDBPoolMetrics updates database pool metrics from pgxpool stats.
// Besides the per-state connection gauges it exports pool pressure numbers:
// the dispatch loop replaces whole alert aggregates in transactions, so
// acquire starvation surfaces here first.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("constructing").Set(float64(stats.ConstructingConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))

	DBPoolAcquireWaitSeconds.Set(stats.AcquireDuration().Seconds())
	DBPoolEmptyAcquires.Set(float64(stats.EmptyAcquireCount()))
}
