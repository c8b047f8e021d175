package model

import "time"

// Command is a navigation request dispatched to the presenter.
type Command interface {
	CommandName() string
}

// AdvancePage is emitted when a marker fires, or by a "next" request.
type AdvancePage struct {
	MarkerID         MarkerID // zero when not caused by a marker
	MarkerPosition   float64
	PlaybackPosition float64
}

// CommandName implements Command.
func (AdvancePage) CommandName() string { return "advance" }

// RetreatPage moves one page back.
type RetreatPage struct{}

// CommandName implements Command.
func (RetreatPage) CommandName() string { return "retreat" }

// GoToPage jumps to a zero-based page index.
type GoToPage struct {
	Page int
}

// CommandName implements Command.
func (GoToPage) CommandName() string { return "goto" }

// PageEvent reports a page command after it was applied.
type PageEvent struct {
	Command   string    `json:"command"`
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
	Moved     bool      `json:"moved"`
	MarkerID  MarkerID  `json:"marker_id,omitempty"`
	Position  float64   `json:"position,omitempty"`
	At        time.Time `json:"at"`
}
