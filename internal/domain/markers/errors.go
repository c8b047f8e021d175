package markers

import "errors"

// Sentinel kinds for marker store errors.
var (
	ErrUnknownMarker = errors.New("unknown marker")
	ErrInvalidRange  = errors.New("invalid marker range")
)
