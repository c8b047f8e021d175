package persistence

import "errors"

var (
	// ErrPersistenceIO reports that a markers file could not be read or written.
	ErrPersistenceIO = errors.New("marker file i/o failed")
	// ErrMarkerRange reports a loaded position outside the active range.
	ErrMarkerRange = errors.New("marker position out of range")
)
