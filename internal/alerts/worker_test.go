package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// fakeSender implements Sender and records what it was asked to deliver.
type fakeSender struct {
	channel domain.NotificationChannel
	sent    []Message
	err     error
}

func (f *fakeSender) Type() domain.NotificationChannel { return f.channel }

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func seedAlert(t *testing.T, repo Repository, notifications ...domain.Notification) *domain.Alert {
	t.Helper()
	alert := &domain.Alert{
		ID:            "a1",
		SourceType:    "metric",
		AlertType:     "cpu_high",
		Severity:      domain.SeverityCritical,
		Status:        domain.AlertStatusOpen,
		Message:       "cpu pegged",
		CreatedAt:     time.Now().UTC(),
		Notifications: notifications,
	}
	require.NoError(t, repo.AddAlert(context.Background(), alert))
	return alert
}

func TestWorker_RunCycle_DispatchesOnlyPending(t *testing.T) {
	repo := newMockRepository()
	sender := &fakeSender{channel: domain.ChannelEmail}
	worker := NewWorker(DefaultWorkerConfig(), repo, NewDispatcher(sender), NewRenderer())

	sentAt := time.Now().UTC()
	seedAlert(t, repo,
		domain.Notification{ID: "n1", AlertID: "a1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", Status: domain.NotificationStatusPending},
		domain.Notification{ID: "n2", AlertID: "a1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", Status: domain.NotificationStatusSent, AttemptCount: 1, LastAttempt: &sentAt},
	)

	worker.runCycle(context.Background())

	require.Len(t, sender.sent, 1, "only the pending notification is dispatched")
	assert.Equal(t, domain.SeverityCritical, sender.sent[0].Severity, "alert severity travels with the message")

	alert, err := repo.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusSent, alert.Notifications[0].Status)
	assert.Equal(t, 1, alert.Notifications[0].AttemptCount)
	assert.NotNil(t, alert.Notifications[0].LastAttempt)
	assert.Equal(t, 1, alert.Notifications[1].AttemptCount, "already-sent item untouched")
}

func TestWorker_RunCycle_FailureIsolation(t *testing.T) {
	repo := newMockRepository()
	failing := &fakeSender{channel: domain.ChannelSlack, err: errors.New("webhook returned status 500")}
	working := &fakeSender{channel: domain.ChannelEmail}
	worker := NewWorker(DefaultWorkerConfig(), repo, NewDispatcher(failing, working), NewRenderer())

	seedAlert(t, repo,
		domain.Notification{ID: "n1", AlertID: "a1", Channel: domain.ChannelSlack, Recipient: "https://hooks.example/x", Status: domain.NotificationStatusPending},
		domain.Notification{ID: "n2", AlertID: "a1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", Status: domain.NotificationStatusPending},
	)

	worker.runCycle(context.Background())

	alert, err := repo.GetAlert(context.Background(), "a1")
	require.NoError(t, err)

	assert.Equal(t, domain.NotificationStatusFailed, alert.Notifications[0].Status)
	assert.Contains(t, alert.Notifications[0].LastError, "500")
	assert.Equal(t, 1, alert.Notifications[0].AttemptCount)

	// The failed slack item does not stop the email item in the same cycle.
	assert.Equal(t, domain.NotificationStatusSent, alert.Notifications[1].Status)
	require.Len(t, working.sent, 1)
}

func TestWorker_RunCycle_UnknownChannelFails(t *testing.T) {
	repo := newMockRepository()
	worker := NewWorker(DefaultWorkerConfig(), repo, NewDispatcher(), NewRenderer())

	seedAlert(t, repo,
		domain.Notification{ID: "n1", AlertID: "a1", Channel: domain.ChannelTeams, Recipient: "https://teams.example/y", Status: domain.NotificationStatusPending},
	)

	worker.runCycle(context.Background())

	alert, err := repo.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusFailed, alert.Notifications[0].Status)
	assert.NotEmpty(t, alert.Notifications[0].LastError)
}

func TestWorker_StartStop(t *testing.T) {
	repo := newMockRepository()
	sender := &fakeSender{channel: domain.ChannelEmail}
	worker := NewWorker(WorkerConfig{Interval: time.Hour}, repo, NewDispatcher(sender), NewRenderer())

	seedAlert(t, repo,
		domain.Notification{ID: "n1", AlertID: "a1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", Status: domain.NotificationStatusPending},
	)

	worker.Start(context.Background())
	worker.Stop()

	// The first cycle runs immediately on start, not after the first tick.
	alert, err := repo.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusSent, alert.Notifications[0].Status)
}

func TestDispatcher_UnknownChannel(t *testing.T) {
	dispatcher := NewDispatcher(&fakeSender{channel: domain.ChannelEmail})

	err := dispatcher.Send(context.Background(), domain.ChannelSlack, Message{})
	assert.ErrorIs(t, err, ErrUnknownChannel)
}
