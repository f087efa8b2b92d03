package collectors

import "errors"

// ErrCollectorNotFound is returned when a collector does not exist.
var ErrCollectorNotFound = errors.New("collector not found")
