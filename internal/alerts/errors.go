package alerts

import "errors"

// Repository errors.
var (
	ErrAlertNotFound        = errors.New("alert not found")
	ErrAlertExists          = errors.New("alert already exists")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Dispatch errors.
var (
	ErrUnknownChannel = errors.New("no sender configured for channel")
)
