package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MonitorConfig contains liveness monitor configuration.
type MonitorConfig struct {
	// Interval between scan cycles.
	Interval time.Duration
	// StaleAfter is how long a collector may stay silent before it is
	// considered stale.
	StaleAfter time.Duration
}

// DefaultMonitorConfig returns default liveness monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   time.Minute,
		StaleAfter: 5 * time.Minute,
	}
}

// Monitor is the collector liveness loop. It periodically scans all
// registered collectors and flags those that have not reported a heartbeat
// within the staleness threshold. The monitor only observes: it never
// mutates collector state.
type Monitor struct {
	config MonitorConfig
	repo   Repository

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewMonitor creates a new liveness monitor.
func NewMonitor(config MonitorConfig, repo Repository) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorConfig().Interval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultMonitorConfig().StaleAfter
	}
	return &Monitor{
		config: config,
		repo:   repo,
		stopCh: make(chan struct{}),
	}
}

// Start launches the loop goroutine. The first cycle runs immediately.
func (m *Monitor) Start(ctx context.Context) {
	slog.Info("starting collector liveness monitor",
		"interval", m.config.Interval,
		"stale_after", m.config.StaleAfter,
	)
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight cycle to end.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	slog.Info("collector liveness monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	m.runCycle(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle checks every collector against the staleness cutoff. Collectors
// that never reported a heartbeat are skipped: a freshly registered
// collector is not a failing one.
func (m *Monitor) runCycle(ctx context.Context) {
	collectors, err := m.repo.ListCollectors(ctx)
	if err != nil {
		slog.Error("failed to list collectors for liveness check", "error", err)
		return
	}

	cutoff := time.Now().UTC().Add(-m.config.StaleAfter)
	stale := 0
	for _, collector := range collectors {
		if !collector.IsStale(cutoff) {
			continue
		}
		stale++
		slog.Warn("collector is stale",
			"collector_id", collector.ID,
			"name", collector.Name,
			"type", collector.Type,
			"last_seen", collector.LastSeen,
		)
	}

	recordStaleCount(stale)
}
