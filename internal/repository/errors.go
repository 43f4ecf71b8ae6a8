package repository

import "errors"

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrUserNotFound = errors.New("user not found")
	// ErrCodeExists is returned when an insert races an existing short code.
	// Callers retry allocation; it is never surfaced to the end user.
	ErrCodeExists = errors.New("short code already exists")
)
