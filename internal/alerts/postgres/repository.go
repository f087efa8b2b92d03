// Package postgres provides PostgreSQL implementation of the alerts
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository implements alerts.Repository using PostgreSQL. An alert and
// its notification ledger are written in one transaction so readers see
// whole aggregates only.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AddAlert stores a new alert aggregate.
func (r *Repository) AddAlert(ctx context.Context, alert *domain.Alert) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO alerts (id, server_id, source_type, source_id, alert_type, severity, status, message, ack_comment, resolution, related_log_ids, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.Exec(ctx, query,
		alert.ID,
		alert.ServerID,
		alert.SourceType,
		alert.SourceID,
		alert.AlertType,
		alert.Severity,
		alert.Status,
		alert.Message,
		alert.AckComment,
		alert.Resolution,
		relatedLogIDs(alert),
		alert.CreatedAt,
		alert.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return alerts.ErrAlertExists
		}
		return fmt.Errorf("insert alert: %w", err)
	}

	if err := insertNotifications(ctx, tx, alert); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetAlert retrieves an alert aggregate by id.
func (r *Repository) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	query := `
		SELECT id, server_id, source_type, source_id, alert_type, severity, status, message, ack_comment, resolution, related_log_ids, created_at, resolved_at
		FROM alerts
		WHERE id = $1
	`
	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, alerts.ErrAlertNotFound
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}

	ledgers, err := r.loadNotifications(ctx, []string{alert.ID})
	if err != nil {
		return nil, err
	}
	alert.Notifications = ledgers[alert.ID]

	return alert, nil
}

// ListAlerts retrieves alert aggregates matching the filter, newest first.
func (r *Repository) ListAlerts(ctx context.Context, filter alerts.AlertFilter) ([]domain.Alert, error) {
	query := `
		SELECT id, server_id, source_type, source_id, alert_type, severity, status, message, ack_comment, resolution, related_log_ids, created_at, resolved_at
		FROM alerts
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR severity = $2)
		  AND ($3::uuid IS NULL OR server_id = $3)
		  AND ($4::text IS NULL OR source_type = $4)
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(ctx, query, filter.Status, filter.Severity, filter.ServerID, filter.SourceType)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Alert, 0)
	ids := make([]string, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		result = append(result, *alert)
		ids = append(ids, alert.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	if len(ids) == 0 {
		return result, nil
	}

	ledgers, err := r.loadNotifications(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Notifications = ledgers[result[i].ID]
	}

	return result, nil
}

// UpdateAlert replaces the stored aggregate, ledger included.
func (r *Repository) UpdateAlert(ctx context.Context, alert *domain.Alert) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		UPDATE alerts
		SET severity = $2, status = $3, message = $4, ack_comment = $5, resolution = $6, related_log_ids = $7, resolved_at = $8
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query,
		alert.ID,
		alert.Severity,
		alert.Status,
		alert.Message,
		alert.AckComment,
		alert.Resolution,
		relatedLogIDs(alert),
		alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return alerts.ErrAlertNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM notifications WHERE alert_id = $1`, alert.ID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	if err := insertNotifications(ctx, tx, alert); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListChannelConfigs retrieves all routing rules.
func (r *Repository) ListChannelConfigs(ctx context.Context) ([]domain.ChannelConfig, error) {
	query := `
		SELECT id, channel, recipient, min_severity, enabled, settings, created_at, updated_at
		FROM channel_configs
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channel configs: %w", err)
	}
	defer rows.Close()

	configs := make([]domain.ChannelConfig, 0)
	for rows.Next() {
		var cfg domain.ChannelConfig
		err := rows.Scan(
			&cfg.ID,
			&cfg.Channel,
			&cfg.Recipient,
			&cfg.MinSeverity,
			&cfg.Enabled,
			&cfg.Settings,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan channel config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// UpsertChannelConfig creates or replaces a routing rule.
func (r *Repository) UpsertChannelConfig(ctx context.Context, cfg *domain.ChannelConfig) error {
	query := `
		INSERT INTO channel_configs (id, channel, recipient, min_severity, enabled, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET channel = EXCLUDED.channel,
		    recipient = EXCLUDED.recipient,
		    min_severity = EXCLUDED.min_severity,
		    enabled = EXCLUDED.enabled,
		    settings = EXCLUDED.settings,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		cfg.ID,
		cfg.Channel,
		cfg.Recipient,
		cfg.MinSeverity,
		cfg.Enabled,
		cfg.Settings,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert channel config: %w", err)
	}
	return nil
}

func (r *Repository) loadNotifications(ctx context.Context, alertIDs []string) (map[string][]domain.Notification, error) {
	query := `
		SELECT id, alert_id, channel, recipient, status, attempt_count, last_attempt, last_error, payload
		FROM notifications
		WHERE alert_id = ANY($1)
		ORDER BY alert_id, position
	`
	rows, err := r.db.Query(ctx, query, alertIDs)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	defer rows.Close()

	ledgers := make(map[string][]domain.Notification)
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.AlertID,
			&n.Channel,
			&n.Recipient,
			&n.Status,
			&n.AttemptCount,
			&n.LastAttempt,
			&n.LastError,
			&n.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		ledgers[n.AlertID] = append(ledgers[n.AlertID], n)
	}
	return ledgers, rows.Err()
}

func insertNotifications(ctx context.Context, tx pgx.Tx, alert *domain.Alert) error {
	query := `
		INSERT INTO notifications (id, alert_id, channel, recipient, status, attempt_count, last_attempt, last_error, payload, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, n := range alert.Notifications {
		_, err := tx.Exec(ctx, query,
			n.ID,
			alert.ID,
			n.Channel,
			n.Recipient,
			n.Status,
			n.AttemptCount,
			n.LastAttempt,
			n.LastError,
			n.Payload,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

// relatedLogIDs normalizes the slice so a nil value round-trips as an
// empty uuid array.
func relatedLogIDs(alert *domain.Alert) []string {
	if alert.RelatedLogIDs == nil {
		return []string{}
	}
	return alert.RelatedLogIDs
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var alert domain.Alert
	var logIDs []string
	err := row.Scan(
		&alert.ID,
		&alert.ServerID,
		&alert.SourceType,
		&alert.SourceID,
		&alert.AlertType,
		&alert.Severity,
		&alert.Status,
		&alert.Message,
		&alert.AckComment,
		&alert.Resolution,
		&logIDs,
		&alert.CreatedAt,
		&alert.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(logIDs) > 0 {
		alert.RelatedLogIDs = logIDs
	}
	return &alert, nil
}
