package domain

import "time"

// NotificationChannel represents an outbound delivery channel.
type NotificationChannel string

// Supported notification channels.
const (
	ChannelEmail   NotificationChannel = "email"
	ChannelTeams   NotificationChannel = "teams"
	ChannelSlack   NotificationChannel = "slack"
	ChannelWebhook NotificationChannel = "webhook"
)

// IsValid checks if the channel is supported.
func (c NotificationChannel) IsValid() bool {
	return c == ChannelEmail || c == ChannelTeams || c == ChannelSlack || c == ChannelWebhook
}

// NotificationStatus represents the delivery state of a notification.
type NotificationStatus string

// Notification delivery states.
const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification is one delivery attempt record owned by an alert.
// The attempt count only ever increases.
type Notification struct {
	ID           string              `json:"id"`
	AlertID      string              `json:"alert_id"`
	Channel      NotificationChannel `json:"channel"`
	Recipient    string              `json:"recipient"`
	Status       NotificationStatus  `json:"status"`
	AttemptCount int                 `json:"attempt_count"`
	LastAttempt  *time.Time          `json:"last_attempt,omitempty"`
	LastError    string              `json:"last_error,omitempty"`
	Payload      map[string]any      `json:"payload,omitempty"`
}

// RecordAttempt records the outcome of a delivery attempt: the status and
// attempt timestamp are updated and the attempt counter is incremented.
func (n *Notification) RecordAttempt(status NotificationStatus, attemptedAt time.Time) {
	n.Status = status
	n.LastAttempt = &attemptedAt
	n.AttemptCount++
}

// Requeue puts the notification back into the pending state so the next
// dispatch cycle picks it up again. The attempt history is preserved.
func (n *Notification) Requeue() {
	n.Status = NotificationStatusPending
	n.LastError = ""
}

// Clone returns a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	dup := *n
	if n.LastAttempt != nil {
		v := *n.LastAttempt
		dup.LastAttempt = &v
	}
	if n.Payload != nil {
		dup.Payload = make(map[string]any, len(n.Payload))
		for k, v := range n.Payload {
			dup.Payload[k] = v
		}
	}
	return &dup
}

// ChannelConfig is an admin-managed routing rule: alerts at or above
// MinSeverity fan out a pending notification to Recipient over Channel.
type ChannelConfig struct {
	ID          string              `json:"id"`
	Channel     NotificationChannel `json:"channel"`
	Recipient   string              `json:"recipient"`
	MinSeverity Severity            `json:"min_severity"`
	Enabled     bool                `json:"enabled"`
	Settings    map[string]any      `json:"settings,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Matches reports whether an alert with the given severity should be
// routed through this channel.
func (c *ChannelConfig) Matches(severity Severity) bool {
	return c.Enabled && severity.AtLeast(c.MinSeverity)
}
