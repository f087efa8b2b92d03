package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
)

func newAlert(id string, createdAt time.Time) *domain.Alert {
	return &domain.Alert{
		ID:         id,
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityWarning,
		Status:     domain.AlertStatusOpen,
		Message:    "cpu",
		CreatedAt:  createdAt,
	}
}

func TestRepository_AddGet(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	alert := newAlert("a1", time.Now().UTC())
	require.NoError(t, repo.AddAlert(ctx, alert))

	assert.ErrorIs(t, repo.AddAlert(ctx, alert), alerts.ErrAlertExists)

	got, err := repo.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, alert.ID, got.ID)

	_, err = repo.GetAlert(ctx, "missing")
	assert.ErrorIs(t, err, alerts.ErrAlertNotFound)
}

func TestRepository_ListAlerts_Ordering(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.AddAlert(ctx, newAlert("old", base.Add(-2*time.Hour))))
	require.NoError(t, repo.AddAlert(ctx, newAlert("newest", base)))
	require.NoError(t, repo.AddAlert(ctx, newAlert("middle", base.Add(-time.Hour))))

	list, err := repo.ListAlerts(ctx, alerts.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "newest", list[0].ID)
	assert.Equal(t, "middle", list[1].ID)
	assert.Equal(t, "old", list[2].ID)
}

func TestRepository_ListAlerts_Filter(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	serverID := "srv-1"
	open := newAlert("a1", time.Now().UTC())
	open.ServerID = &serverID

	closed := newAlert("a2", time.Now().UTC())
	closed.Status = domain.AlertStatusClosed
	closed.Severity = domain.SeverityCritical

	require.NoError(t, repo.AddAlert(ctx, open))
	require.NoError(t, repo.AddAlert(ctx, closed))

	status := domain.AlertStatusOpen
	list, err := repo.ListAlerts(ctx, alerts.AlertFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)

	severity := domain.SeverityCritical
	list, err = repo.ListAlerts(ctx, alerts.AlertFilter{Severity: &severity})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)

	list, err = repo.ListAlerts(ctx, alerts.AlertFilter{ServerID: &serverID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)
}

func TestRepository_UpdateAlert(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	alert := newAlert("a1", time.Now().UTC())
	require.NoError(t, repo.AddAlert(ctx, alert))

	alert.Acknowledge("on it")
	require.NoError(t, repo.UpdateAlert(ctx, alert))

	got, err := repo.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusAcknowledged, got.Status)

	assert.ErrorIs(t, repo.UpdateAlert(ctx, newAlert("missing", time.Now().UTC())), alerts.ErrAlertNotFound)
}

func TestRepository_NoSharedState(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	alert := newAlert("a1", time.Now().UTC())
	alert.Notifications = []domain.Notification{
		{ID: "n1", Status: domain.NotificationStatusPending},
	}
	require.NoError(t, repo.AddAlert(ctx, alert))

	// Mutating the caller's copy after Add must not leak into the store.
	alert.Notifications[0].Status = domain.NotificationStatusSent

	got, err := repo.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusPending, got.Notifications[0].Status)

	// Mutating a fetched copy must not leak either.
	got.Message = "changed"
	again, err := repo.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "cpu", again.Message)
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("a%d", i)
			_ = repo.AddAlert(ctx, newAlert(id, time.Now().UTC()))
			if got, err := repo.GetAlert(ctx, id); err == nil {
				got.Acknowledge("ack")
				_ = repo.UpdateAlert(ctx, got)
			}
			_, _ = repo.ListAlerts(ctx, alerts.AlertFilter{})
		}(i)
	}
	wg.Wait()

	list, err := repo.ListAlerts(ctx, alerts.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestRepository_ChannelConfigs(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	cfg := &domain.ChannelConfig{
		ID:          "c1",
		Channel:     domain.ChannelEmail,
		Recipient:   "ops@example.com",
		MinSeverity: domain.SeverityWarning,
		Enabled:     true,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, repo.UpsertChannelConfig(ctx, cfg))

	update := *cfg
	update.MinSeverity = domain.SeverityCritical
	update.CreatedAt = time.Now().UTC()
	update.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpsertChannelConfig(ctx, &update))

	list, err := repo.ListChannelConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SeverityCritical, list[0].MinSeverity)
	assert.Equal(t, cfg.CreatedAt, list[0].CreatedAt, "creation time survives updates")
}
