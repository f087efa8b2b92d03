//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
	pgutil "github.com/okutsev/fleetwatch/internal/pkg/postgres"
	"github.com/okutsev/fleetwatch/internal/testutil"
	"github.com/okutsev/fleetwatch/migrations"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	if err := pgutil.Migrate(migrations.FS, container.ConnectionString); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, container.ConnectionString)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer testPool.Close()

	os.Exit(m.Run())
}

func cleanTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE alerts, notifications, channel_configs CASCADE`)
	require.NoError(t, err)
}

func sampleAlert(id string) *domain.Alert {
	return &domain.Alert{
		ID:         id,
		SourceType: "metric",
		AlertType:  "cpu_high",
		Severity:   domain.SeverityWarning,
		Status:     domain.AlertStatusOpen,
		Message:    "cpu pegged",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRepository_AddGetAlert(t *testing.T) {
	cleanTables(t)
	repo := NewRepository(testPool)
	ctx := context.Background()

	alert := sampleAlert("2e9a17f2-0000-4000-8000-000000000001")
	alert.Notifications = []domain.Notification{
		{
			ID:        "2e9a17f2-0000-4000-8000-000000000002",
			AlertID:   alert.ID,
			Channel:   domain.ChannelEmail,
			Recipient: "ops@example.com",
			Status:    domain.NotificationStatusPending,
			Payload:   map[string]any{"priority": "high"},
		},
	}

	require.NoError(t, repo.AddAlert(ctx, alert))
	assert.ErrorIs(t, repo.AddAlert(ctx, alert), alerts.ErrAlertExists)

	got, err := repo.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.Message, got.Message)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, "ops@example.com", got.Notifications[0].Recipient)
	assert.Equal(t, "high", got.Notifications[0].Payload["priority"])

	_, err = repo.GetAlert(ctx, "2e9a17f2-0000-4000-8000-00000000beef")
	assert.ErrorIs(t, err, alerts.ErrAlertNotFound)
}

func TestRepository_UpdateAlert_ReplacesAggregate(t *testing.T) {
	cleanTables(t)
	repo := NewRepository(testPool)
	ctx := context.Background()

	alert := sampleAlert("2e9a17f2-0000-4000-8000-000000000010")
	alert.Notifications = []domain.Notification{
		{
			ID:        "2e9a17f2-0000-4000-8000-000000000011",
			AlertID:   alert.ID,
			Channel:   domain.ChannelSlack,
			Recipient: "https://hooks.example/x",
			Status:    domain.NotificationStatusPending,
		},
	}
	require.NoError(t, repo.AddAlert(ctx, alert))

	alert.Acknowledge("on it")
	alert.Notifications[0].RecordAttempt(domain.NotificationStatusSent, time.Now().UTC().Truncate(time.Microsecond))
	alert.AddNotification(domain.Notification{
		ID:        "2e9a17f2-0000-4000-8000-000000000012",
		AlertID:   alert.ID,
		Channel:   domain.ChannelEmail,
		Recipient: "ops@example.com",
		Status:    domain.NotificationStatusPending,
	})
	alert.AddRelatedLog("2e9a17f2-0000-4000-8000-000000000013")
	require.NoError(t, repo.UpdateAlert(ctx, alert))

	got, err := repo.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusAcknowledged, got.Status)
	require.Len(t, got.Notifications, 2)
	assert.Equal(t, domain.NotificationStatusSent, got.Notifications[0].Status)
	assert.Equal(t, 1, got.Notifications[0].AttemptCount)
	assert.Equal(t, domain.NotificationStatusPending, got.Notifications[1].Status)
	assert.Equal(t, []string{"2e9a17f2-0000-4000-8000-000000000013"}, got.RelatedLogIDs)

	missing := sampleAlert("2e9a17f2-0000-4000-8000-00000000dead")
	assert.ErrorIs(t, repo.UpdateAlert(ctx, missing), alerts.ErrAlertNotFound)
}

func TestRepository_ListAlerts_FilterAndOrder(t *testing.T) {
	cleanTables(t)
	repo := NewRepository(testPool)
	ctx := context.Background()

	older := sampleAlert("2e9a17f2-0000-4000-8000-000000000020")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	older.Status = domain.AlertStatusClosed

	newer := sampleAlert("2e9a17f2-0000-4000-8000-000000000021")
	newer.Severity = domain.SeverityCritical

	require.NoError(t, repo.AddAlert(ctx, older))
	require.NoError(t, repo.AddAlert(ctx, newer))

	list, err := repo.ListAlerts(ctx, alerts.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")

	status := domain.AlertStatusOpen
	list, err = repo.ListAlerts(ctx, alerts.AlertFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestRepository_ChannelConfigs(t *testing.T) {
	cleanTables(t)
	repo := NewRepository(testPool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	cfg := &domain.ChannelConfig{
		ID:          "2e9a17f2-0000-4000-8000-000000000030",
		Channel:     domain.ChannelTeams,
		Recipient:   "https://teams.example/y",
		MinSeverity: domain.SeverityWarning,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.UpsertChannelConfig(ctx, cfg))

	cfg.MinSeverity = domain.SeverityCritical
	cfg.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpsertChannelConfig(ctx, cfg))

	list, err := repo.ListChannelConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SeverityCritical, list[0].MinSeverity)
}
