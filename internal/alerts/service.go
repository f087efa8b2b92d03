package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/ctxlog"
)

// Service implements alert lifecycle business logic.
type Service struct {
	repo Repository
}

// NewService creates a new alert service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAlertInput holds data for raising an alert.
type CreateAlertInput struct {
	ServerID   *string
	SourceType string
	SourceID   *string
	AlertType  string
	Severity   domain.Severity
	Message    string
}

// CreateAlert raises a new open alert and fans out a pending notification
// for every enabled channel routing rule matching the alert severity. The
// dispatch loop picks the pending entries up on its next cycle.
func (s *Service) CreateAlert(ctx context.Context, input CreateAlertInput) (*domain.Alert, error) {
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("invalid severity: %s", input.Severity)
	}

	alert := &domain.Alert{
		ID:         uuid.NewString(),
		ServerID:   input.ServerID,
		SourceType: input.SourceType,
		SourceID:   input.SourceID,
		AlertType:  input.AlertType,
		Severity:   input.Severity,
		Status:     domain.AlertStatusOpen,
		Message:    input.Message,
		CreatedAt:  time.Now().UTC(),
	}

	routes, err := s.repo.ListChannelConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channel configs: %w", err)
	}

	for _, route := range routes {
		if !route.Matches(alert.Severity) {
			continue
		}
		alert.AddNotification(domain.Notification{
			ID:        uuid.NewString(),
			AlertID:   alert.ID,
			Channel:   route.Channel,
			Recipient: route.Recipient,
			Status:    domain.NotificationStatusPending,
			Payload:   route.Settings,
		})
	}

	if err := s.repo.AddAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("add alert: %w", err)
	}

	recordAlertCreated(string(alert.Severity))
	ctxlog.FromContext(ctx).Info("alert created",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"alert_type", alert.AlertType,
		"notifications_queued", len(alert.Notifications),
	)

	return alert, nil
}

// GetAlert returns the alert with the given id.
func (s *Service) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	return s.repo.GetAlert(ctx, id)
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	return s.repo.ListAlerts(ctx, filter)
}

// Acknowledge moves the alert to the acknowledged state. The resolution
// timestamp is left as is. Unknown ids are a silent no-op: acknowledging is
// a fire-and-forget operator action, callers that need a 404 contract check
// existence separately.
func (s *Service) Acknowledge(ctx context.Context, alertID, comment string) error {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil
		}
		return err
	}

	alert.Acknowledge(comment)
	if err := s.repo.UpdateAlert(ctx, alert); err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	ctxlog.FromContext(ctx).Info("alert acknowledged", "alert_id", alertID, "comment", comment)
	return nil
}

// Close moves the alert to the closed state and stamps the resolution time.
// Same no-op policy for unknown ids as Acknowledge.
func (s *Service) Close(ctx context.Context, alertID, resolution string) error {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil
		}
		return err
	}

	alert.Close(resolution, time.Now().UTC())
	if err := s.repo.UpdateAlert(ctx, alert); err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	ctxlog.FromContext(ctx).Info("alert closed", "alert_id", alertID, "resolution", resolution)
	return nil
}

// UpdateMessage replaces the alert message and severity. Silent no-op for
// unknown ids.
func (s *Service) UpdateMessage(ctx context.Context, alertID, message string, severity domain.Severity) error {
	if !severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", severity)
	}

	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil
		}
		return err
	}

	alert.UpdateMessage(message, severity)
	return s.repo.UpdateAlert(ctx, alert)
}

// QueueNotification appends a pending delivery record to the alert's
// ledger. The alert status is not changed. Silent no-op for unknown ids.
func (s *Service) QueueNotification(ctx context.Context, alertID string, channel domain.NotificationChannel, recipient string, payload map[string]any) error {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil
		}
		return err
	}

	alert.AddNotification(domain.Notification{
		ID:        uuid.NewString(),
		AlertID:   alert.ID,
		Channel:   channel,
		Recipient: recipient,
		Status:    domain.NotificationStatusPending,
		Payload:   payload,
	})

	return s.repo.UpdateAlert(ctx, alert)
}

// AddRelatedLog associates a log entry with the alert for correlation.
// Duplicates and unknown alert ids are silent no-ops.
func (s *Service) AddRelatedLog(ctx context.Context, alertID, logID string) error {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil
		}
		return err
	}

	alert.AddRelatedLog(logID)
	return s.repo.UpdateAlert(ctx, alert)
}

// ListNotifications returns the alert's notification ledger in append order.
func (s *Service) ListNotifications(ctx context.Context, alertID string) ([]domain.Notification, error) {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	return alert.Notifications, nil
}

// ResendNotification puts a delivered or failed notification back into the
// pending state so the dispatch loop retries it on the next cycle.
func (s *Service) ResendNotification(ctx context.Context, alertID, notificationID string) error {
	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}

	notification := alert.Notification(notificationID)
	if notification == nil {
		return ErrNotificationNotFound
	}

	notification.Requeue()
	if err := s.repo.UpdateAlert(ctx, alert); err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	ctxlog.FromContext(ctx).Info("notification requeued",
		"alert_id", alertID,
		"notification_id", notificationID,
		"channel", notification.Channel,
	)
	return nil
}

// ListChannelConfigs returns all channel routing rules.
func (s *Service) ListChannelConfigs(ctx context.Context) ([]domain.ChannelConfig, error) {
	return s.repo.ListChannelConfigs(ctx)
}

// UpsertChannelConfigInput holds data for creating or updating a routing
// rule.
type UpsertChannelConfigInput struct {
	ID          *string
	Channel     domain.NotificationChannel
	Recipient   string
	MinSeverity domain.Severity
	Enabled     bool
	Settings    map[string]any
}

// UpsertChannelConfig creates or replaces a channel routing rule.
func (s *Service) UpsertChannelConfig(ctx context.Context, input UpsertChannelConfigInput) (*domain.ChannelConfig, error) {
	if !input.Channel.IsValid() {
		return nil, fmt.Errorf("invalid channel: %s", input.Channel)
	}
	if !input.MinSeverity.IsValid() {
		return nil, fmt.Errorf("invalid severity: %s", input.MinSeverity)
	}

	now := time.Now().UTC()
	cfg := &domain.ChannelConfig{
		Channel:     input.Channel,
		Recipient:   input.Recipient,
		MinSeverity: input.MinSeverity,
		Enabled:     input.Enabled,
		Settings:    input.Settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ID != nil {
		cfg.ID = *input.ID
	} else {
		cfg.ID = uuid.NewString()
	}

	if err := s.repo.UpsertChannelConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("upsert channel config: %w", err)
	}
	return cfg, nil
}
