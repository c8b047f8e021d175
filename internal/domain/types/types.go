// Package types contains the JSON shapes shared by the service and its adapters.
package types

import "github.com/okian/pagecue/internal/domain/model"

// Marker is the external view of a marker.
type Marker struct {
	ID        uint64  `json:"id"`
	Position  float64 `json:"position"`
	Dragging  bool    `json:"dragging"`
	Triggered bool    `json:"triggered"`
}

// NewMarker builds the view of a marker and its trigger state.
func NewMarker(m model.MarkerState) Marker {
	return Marker{
		ID:        uint64(m.ID),
		Position:  m.Position,
		Dragging:  m.Dragging,
		Triggered: m.Triggered,
	}
}

// Document is the external view of the open document.
type Document struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	PageCount   int    `json:"page_count"`
	CurrentPage int    `json:"current_page"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
}

// Track is the external view of the loaded audio track.
type Track struct {
	Name     string  `json:"name"`
	Length   float64 `json:"length"`
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// NewTrack builds the view of a named track from a clock snapshot.
func NewTrack(name string, p model.PlaybackState) *Track {
	return &Track{
		Name:     name,
		Length:   p.Length,
		Position: p.Position,
		Playing:  p.Playing,
	}
}

// Snapshot is the presenter state at one instant.
type Snapshot struct {
	Document     *Document `json:"document,omitempty"`
	Track        *Track    `json:"track,omitempty"`
	Markers      []Marker  `json:"markers"`
	Viewport     [2]int    `json:"viewport"`
	Preview      [2]int    `json:"preview"`
	CacheEntries int       `json:"cache_entries"`
	Running      bool      `json:"running"`
	Status       string    `json:"status"`
}
