package domain

import "time"

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

// Alert lifecycle states.
const (
	AlertStatusOpen         AlertStatus = "open"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusClosed       AlertStatus = "closed"
)

// Severity represents the severity classification of an alert.
type Severity string

// Alert severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the alert status is a known lifecycle state.
func (s AlertStatus) IsValid() bool {
	return s == AlertStatusOpen || s == AlertStatusAcknowledged || s == AlertStatusClosed
}

// IsValid checks if the severity is a known classification.
func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// rank orders severities for routing comparisons.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	}
	return -1
}

// AtLeast reports whether the severity is equal to or above the given floor.
func (s Severity) AtLeast(floor Severity) bool {
	return s.rank() >= floor.rank()
}

// Alert represents one detected or manually raised condition.
// Notifications and related log references are owned by the alert and are
// persisted as part of the aggregate.
type Alert struct {
	ID            string         `json:"id"`
	ServerID      *string        `json:"server_id,omitempty"`
	SourceType    string         `json:"source_type"`
	SourceID      *string        `json:"source_id,omitempty"`
	AlertType     string         `json:"alert_type"`
	Severity      Severity       `json:"severity"`
	Status        AlertStatus    `json:"status"`
	Message       string         `json:"message"`
	AckComment    string         `json:"ack_comment,omitempty"`
	Resolution    string         `json:"resolution,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
	RelatedLogIDs []string       `json:"related_log_ids,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// Acknowledge transitions the alert to acknowledged. The resolution
// timestamp is left untouched. The operator comment replaces any previous
// one.
func (a *Alert) Acknowledge(comment string) {
	a.Status = AlertStatusAcknowledged
	if comment != "" {
		a.AckComment = comment
	}
}

// Close transitions the alert to closed and stamps the resolution time.
// Closing an already-closed alert keeps the original timestamp.
func (a *Alert) Close(resolution string, now time.Time) {
	if a.Status != AlertStatusClosed {
		a.ResolvedAt = &now
	}
	a.Status = AlertStatusClosed
	if resolution != "" {
		a.Resolution = resolution
	}
}

// UpdateMessage replaces the human-readable message and severity.
func (a *Alert) UpdateMessage(message string, severity Severity) {
	a.Message = message
	a.Severity = severity
}

// AddNotification appends a delivery record to the alert's ledger.
func (a *Alert) AddNotification(n Notification) {
	a.Notifications = append(a.Notifications, n)
}

// AddRelatedLog associates a log entry with the alert. Duplicate ids are
// ignored.
func (a *Alert) AddRelatedLog(logID string) {
	for _, id := range a.RelatedLogIDs {
		if id == logID {
			return
		}
	}
	a.RelatedLogIDs = append(a.RelatedLogIDs, logID)
}

// Notification returns a pointer to the ledger entry with the given id,
// or nil if the alert has no such notification.
func (a *Alert) Notification(id string) *Notification {
	for i := range a.Notifications {
		if a.Notifications[i].ID == id {
			return &a.Notifications[i]
		}
	}
	return nil
}

// PendingNotifications returns the ledger entries awaiting delivery.
func (a *Alert) PendingNotifications() []*Notification {
	var pending []*Notification
	for i := range a.Notifications {
		if a.Notifications[i].Status == NotificationStatusPending {
			pending = append(pending, &a.Notifications[i])
		}
	}
	return pending
}

// Clone returns a deep copy of the alert. Stores hand out and accept
// clones so a reader never observes a partially mutated aggregate.
func (a *Alert) Clone() *Alert {
	dup := *a
	if a.ServerID != nil {
		v := *a.ServerID
		dup.ServerID = &v
	}
	if a.SourceID != nil {
		v := *a.SourceID
		dup.SourceID = &v
	}
	if a.ResolvedAt != nil {
		v := *a.ResolvedAt
		dup.ResolvedAt = &v
	}
	if a.RelatedLogIDs != nil {
		dup.RelatedLogIDs = append([]string(nil), a.RelatedLogIDs...)
	}
	if a.Notifications != nil {
		dup.Notifications = make([]Notification, len(a.Notifications))
		for i := range a.Notifications {
			dup.Notifications[i] = *a.Notifications[i].Clone()
		}
	}
	return &dup
}
