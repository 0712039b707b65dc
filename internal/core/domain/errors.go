package domain

import "errors"

var (
	// ErrNotFound is returned when a requested crossing, image or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoSnapshot is returned before the first detection cycle has completed.
	ErrNoSnapshot = errors.New("no detection snapshot available")
)
