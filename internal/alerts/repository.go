// Package alerts provides the alert lifecycle, notification ledger and the
// background notification dispatch loop.
package alerts

import (
	"context"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository defines the interface for alert data access. Alerts are stored
// as whole aggregates: UpdateAlert replaces the alert together with its
// notification ledger, so concurrent readers never observe a partially
// updated entity.
type Repository interface {
	AddAlert(ctx context.Context, alert *domain.Alert) error
	GetAlert(ctx context.Context, id string) (*domain.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]domain.Alert, error)
	UpdateAlert(ctx context.Context, alert *domain.Alert) error

	// Channel routing rules
	ListChannelConfigs(ctx context.Context) ([]domain.ChannelConfig, error)
	UpsertChannelConfig(ctx context.Context, cfg *domain.ChannelConfig) error
}

// AlertFilter represents filter criteria for listing alerts. Nil fields
// match everything. Results are ordered by creation time, newest first.
type AlertFilter struct {
	Status     *domain.AlertStatus
	Severity   *domain.Severity
	ServerID   *string
	SourceType *string
}

// Matches reports whether the alert passes all set filter fields.
func (f AlertFilter) Matches(a *domain.Alert) bool {
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.ServerID != nil && (a.ServerID == nil || *a.ServerID != *f.ServerID) {
		return false
	}
	if f.SourceType != nil && a.SourceType != *f.SourceType {
		return false
	}
	return true
}
