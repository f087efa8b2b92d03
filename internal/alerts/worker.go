package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// WorkerConfig contains dispatch loop configuration.
type WorkerConfig struct {
	// Interval between scan cycles.
	Interval time.Duration
}

// DefaultWorkerConfig returns default dispatch loop configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{Interval: time.Minute}
}

// Worker is the notification dispatch loop. It periodically scans all
// alerts for pending notifications and attempts delivery, recording the
// outcome on each notification. One failed item never aborts the cycle for
// the rest, and a failed cycle never terminates the loop.
type Worker struct {
	config     WorkerConfig
	repo       Repository
	dispatcher *Dispatcher
	renderer   *Renderer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a new dispatch loop.
func NewWorker(config WorkerConfig, repo Repository, dispatcher *Dispatcher, renderer *Renderer) *Worker {
	if config.Interval <= 0 {
		config.Interval = DefaultWorkerConfig().Interval
	}
	return &Worker{
		config:     config,
		repo:       repo,
		dispatcher: dispatcher,
		renderer:   renderer,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the loop goroutine. The first cycle runs immediately.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification dispatcher", "interval", w.config.Interval)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight cycle to end.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification dispatcher stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.runCycle(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle scans every alert for pending notifications and dispatches them.
// The loop must outlive any single bad cycle, so panics are contained here.
func (w *Worker) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch cycle panicked", "panic", r)
		}
	}()

	alerts, err := w.repo.ListAlerts(ctx, AlertFilter{})
	if err != nil {
		slog.Error("failed to list alerts for dispatch", "error", err)
		return
	}

	pendingTotal := 0
	for i := range alerts {
		alert := &alerts[i]
		pending := alert.PendingNotifications()
		if len(pending) == 0 {
			continue
		}
		pendingTotal += len(pending)

		for _, notification := range pending {
			w.dispatch(ctx, alert, notification)
		}

		if err := w.repo.UpdateAlert(ctx, alert); err != nil {
			slog.Error("failed to persist dispatch outcomes",
				"alert_id", alert.ID,
				"error", err,
			)
		}
	}

	recordPendingCount(pendingTotal)
}

// dispatch delivers one notification and records the outcome on it. The
// status update is the terminal effect of an attempt: sent and failed items
// are not rescanned, so a permanently failing target cannot cause infinite
// redelivery.
func (w *Worker) dispatch(ctx context.Context, alert *domain.Alert, notification *domain.Notification) {
	start := time.Now()

	subject, body := w.renderer.Render(alert, notification)
	err := w.dispatcher.Send(ctx, notification.Channel, Message{
		Recipient: notification.Recipient,
		Subject:   subject,
		Body:      body,
		Severity:  alert.Severity,
		Payload:   notification.Payload,
	})
	duration := time.Since(start)
	now := time.Now().UTC()

	if err != nil {
		notification.RecordAttempt(domain.NotificationStatusFailed, now)
		notification.LastError = err.Error()
		recordDispatch(string(notification.Channel), "failed")

		slog.Warn("notification delivery failed",
			"alert_id", alert.ID,
			"notification_id", notification.ID,
			"channel", notification.Channel,
			"attempt", notification.AttemptCount,
			"error", err,
		)
		return
	}

	notification.RecordAttempt(domain.NotificationStatusSent, now)
	notification.LastError = ""
	recordDispatch(string(notification.Channel), "sent")
	recordDispatchDuration(string(notification.Channel), duration)

	slog.Info("notification sent",
		"alert_id", alert.ID,
		"notification_id", notification.ID,
		"channel", notification.Channel,
		"duration", duration,
	)
}
