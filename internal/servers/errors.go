package servers

import "errors"

var (
	// ErrServerNotFound is returned when a server does not exist.
	ErrServerNotFound = errors.New("server not found")

	// ErrHostnameTaken is returned when a server with the same hostname
	// already exists.
	ErrHostnameTaken = errors.New("hostname already taken")
)
