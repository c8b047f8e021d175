// Package model contains domain models passed between layers.
package model

// MarkerID identifies a marker for its whole lifetime. Ids are assigned in
// increasing order by the marker store and never reused, so trigger state
// keyed by id survives reordering and reallocation of the marker list.
type MarkerID uint64

// Marker is a user-placed time point that advances the document when
// playback reaches it.
type Marker struct {
	ID       MarkerID
	Position float64 // seconds, >= 0
	Dragging bool
}

// MarkerState is a marker together with its trigger state.
type MarkerState struct {
	Marker
	Triggered bool
}

// PlaybackState is a read-only snapshot of the playback clock.
type PlaybackState struct {
	Position float64 // seconds
	Length   float64 // seconds
	Playing  bool
}

// DocumentSession describes the one open document.
type DocumentSession struct {
	ID          string // random per load
	Filename    string
	Path        string
	PageCount   int
	CurrentPage int // 0 <= CurrentPage < PageCount
}

// HasNext reports whether an advance would move the page.
func (d DocumentSession) HasNext() bool {
	return d.CurrentPage+1 < d.PageCount
}

// HasPrevious reports whether a retreat would move the page.
func (d DocumentSession) HasPrevious() bool {
	return d.CurrentPage > 0
}

// Size is a pixel size.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}
