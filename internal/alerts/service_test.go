package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	alerts   map[string]*domain.Alert
	channels []domain.ChannelConfig

	addErr    error
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{alerts: make(map[string]*domain.Alert)}
}

func (m *mockRepository) AddAlert(_ context.Context, alert *domain.Alert) error {
	if m.addErr != nil {
		return m.addErr
	}
	if _, ok := m.alerts[alert.ID]; ok {
		return ErrAlertExists
	}
	m.alerts[alert.ID] = alert.Clone()
	return nil
}

func (m *mockRepository) GetAlert(_ context.Context, id string) (*domain.Alert, error) {
	alert, ok := m.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return alert.Clone(), nil
}

func (m *mockRepository) ListAlerts(_ context.Context, filter AlertFilter) ([]domain.Alert, error) {
	var result []domain.Alert
	for _, alert := range m.alerts {
		if filter.Matches(alert) {
			result = append(result, *alert.Clone())
		}
	}
	return result, nil
}

func (m *mockRepository) UpdateAlert(_ context.Context, alert *domain.Alert) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.alerts[alert.ID]; !ok {
		return ErrAlertNotFound
	}
	m.alerts[alert.ID] = alert.Clone()
	return nil
}

func (m *mockRepository) ListChannelConfigs(_ context.Context) ([]domain.ChannelConfig, error) {
	return m.channels, nil
}

func (m *mockRepository) UpsertChannelConfig(_ context.Context, cfg *domain.ChannelConfig) error {
	m.channels = append(m.channels, *cfg)
	return nil
}

func TestService_CreateAlert(t *testing.T) {
	repo := newMockRepository()
	repo.channels = []domain.ChannelConfig{
		{ID: "c1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", MinSeverity: domain.SeverityWarning, Enabled: true},
		{ID: "c2", Channel: domain.ChannelSlack, Recipient: "https://hooks.slack.example/x", MinSeverity: domain.SeverityCritical, Enabled: true},
		{ID: "c3", Channel: domain.ChannelTeams, Recipient: "https://teams.example/y", MinSeverity: domain.SeverityInfo, Enabled: false},
	}
	service := NewService(repo)

	serverID := "3f0f9f4e-1111-4a7e-9a3d-000000000001"
	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		ServerID:   &serverID,
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityWarning,
		Message:    "CPU above 95% for 10 minutes",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, domain.AlertStatusOpen, alert.Status)
	assert.Nil(t, alert.ResolvedAt)
	assert.False(t, alert.CreatedAt.IsZero())

	// Warning matches the email rule only: slack needs critical, teams is
	// disabled.
	require.Len(t, alert.Notifications, 1)
	n := alert.Notifications[0]
	assert.Equal(t, domain.ChannelEmail, n.Channel)
	assert.Equal(t, "ops@example.com", n.Recipient)
	assert.Equal(t, domain.NotificationStatusPending, n.Status)
	assert.Zero(t, n.AttemptCount)

	stored, err := repo.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Notifications, 1)
}

func TestService_CreateAlert_InvalidSeverity(t *testing.T) {
	service := NewService(newMockRepository())

	_, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.Severity("fatal"),
		Message:    "boom",
	})
	assert.Error(t, err)
}

func TestService_Acknowledge(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "disk_full",
		Severity:   domain.SeverityCritical,
		Message:    "disk full",
	})
	require.NoError(t, err)

	require.NoError(t, service.Acknowledge(context.Background(), alert.ID, "on it"))

	stored, err := service.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusAcknowledged, stored.Status)
	assert.Equal(t, "on it", stored.AckComment)
	assert.Nil(t, stored.ResolvedAt)
}

func TestService_Acknowledge_UnknownIDIsNoop(t *testing.T) {
	service := NewService(newMockRepository())

	err := service.Acknowledge(context.Background(), "missing", "comment")
	assert.NoError(t, err)
}

func TestService_Close(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "disk_full",
		Severity:   domain.SeverityCritical,
		Message:    "disk full",
	})
	require.NoError(t, err)

	require.NoError(t, service.Close(context.Background(), alert.ID, "cleaned up"))

	stored, err := service.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusClosed, stored.Status)
	assert.Equal(t, "cleaned up", stored.Resolution)
	require.NotNil(t, stored.ResolvedAt)

	// Closing again must not move the resolution timestamp.
	first := *stored.ResolvedAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, service.Close(context.Background(), alert.ID, "again"))

	stored, err = service.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.ResolvedAt)
}

func TestService_Close_UnknownIDIsNoop(t *testing.T) {
	service := NewService(newMockRepository())

	assert.NoError(t, service.Close(context.Background(), "missing", "done"))
}

func TestService_UpdateMessage(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityWarning,
		Message:    "CPU above 90%",
	})
	require.NoError(t, err)

	require.NoError(t, service.UpdateMessage(context.Background(), alert.ID, "CPU above 99%", domain.SeverityCritical))

	stored, err := service.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "CPU above 99%", stored.Message)
	assert.Equal(t, domain.SeverityCritical, stored.Severity)
	assert.Equal(t, domain.AlertStatusOpen, stored.Status)

	t.Run("invalid severity", func(t *testing.T) {
		err := service.UpdateMessage(context.Background(), alert.ID, "x", domain.Severity("fatal"))
		assert.Error(t, err)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		assert.NoError(t, service.UpdateMessage(context.Background(), "missing", "x", domain.SeverityInfo))
	})
}

func TestService_QueueNotification(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "log",
		AlertType:  "error_burst",
		Severity:   domain.SeverityWarning,
		Message:    "errors spiking",
	})
	require.NoError(t, err)

	err = service.QueueNotification(context.Background(), alert.ID, domain.ChannelWebhook, "https://ops.example/hook", nil)
	require.NoError(t, err)

	notifications, err := service.ListNotifications(context.Background(), alert.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationStatusPending, notifications[0].Status)
	assert.Equal(t, alert.ID, notifications[0].AlertID)
}

func TestService_AddRelatedLog(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "log",
		AlertType:  "error_burst",
		Severity:   domain.SeverityInfo,
		Message:    "errors",
	})
	require.NoError(t, err)

	require.NoError(t, service.AddRelatedLog(context.Background(), alert.ID, "log-1"))
	require.NoError(t, service.AddRelatedLog(context.Background(), alert.ID, "log-1"))
	require.NoError(t, service.AddRelatedLog(context.Background(), "missing", "log-2"))

	stored, err := service.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"log-1"}, stored.RelatedLogIDs)
}

func TestService_ResendNotification(t *testing.T) {
	repo := newMockRepository()
	repo.channels = []domain.ChannelConfig{
		{ID: "c1", Channel: domain.ChannelEmail, Recipient: "ops@example.com", MinSeverity: domain.SeverityInfo, Enabled: true},
	}
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityCritical,
		Message:    "cpu",
	})
	require.NoError(t, err)
	notificationID := alert.Notifications[0].ID

	// Simulate a terminally failed delivery.
	stored, err := repo.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	stored.Notifications[0].RecordAttempt(domain.NotificationStatusFailed, time.Now().UTC())
	stored.Notifications[0].LastError = "mailbox unavailable"
	require.NoError(t, repo.UpdateAlert(context.Background(), stored))

	require.NoError(t, service.ResendNotification(context.Background(), alert.ID, notificationID))

	notifications, err := service.ListNotifications(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusPending, notifications[0].Status)
	assert.Empty(t, notifications[0].LastError)
	assert.Equal(t, 1, notifications[0].AttemptCount)
}

func TestService_ResendNotification_Missing(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	alert, err := service.CreateAlert(context.Background(), CreateAlertInput{
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityInfo,
		Message:    "cpu",
	})
	require.NoError(t, err)

	err = service.ResendNotification(context.Background(), alert.ID, "missing")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	err = service.ResendNotification(context.Background(), "missing", "whatever")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
