package service

import "errors"

// Sentinel kinds for presenter errors.
var (
	ErrNoDocument    = errors.New("no document loaded")
	ErrNoTrack       = errors.New("no track loaded")
	ErrInvalidTrack  = errors.New("invalid track length")
	ErrMarkerRange   = errors.New("marker position out of range")
	ErrNoMarkersPath = errors.New("no markers file path")
	ErrUnknownCmd    = errors.New("unknown command")
)
