// Package markers holds the set of time markers placed over the audio track.
//
// The store is plain data: it keeps markers in insertion order, hands out
// stable ids and implements the drag lifecycle. Range checks on insertion are
// the caller's job; only drags are clamped to the store range.
//
// A Store is not safe for concurrent use.
package markers

import (
	"fmt"

	"github.com/okian/pagecue/internal/domain/model"
)

// Default range before a track is loaded.
const (
	defaultMin = 0.0
	defaultMax = 1.0
)

// Store owns the markers.
type Store struct {
	markers []model.Marker
	nextID  model.MarkerID
	min     float64
	max     float64
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		min: defaultMin,
		max: defaultMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts a marker and returns its id. No ordering or uniqueness is
// enforced; duplicates are kept.
func (s *Store) Add(position float64) model.MarkerID {
	s.nextID++
	s.markers = append(s.markers, model.Marker{ID: s.nextID, Position: position})
	return s.nextID
}

// Clear removes all markers. Ids are not reused afterwards.
func (s *Store) Clear() {
	s.markers = s.markers[:0]
}

// List returns a copy of the markers in insertion order.
func (s *Store) List() []model.Marker {
	out := make([]model.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len returns the number of markers.
func (s *Store) Len() int {
	return len(s.markers)
}

// Get returns the marker with the given id.
func (s *Store) Get(id model.MarkerID) (model.Marker, bool) {
	if i := s.index(id); i >= 0 {
		return s.markers[i], true
	}
	return model.Marker{}, false
}

// Positions returns the marker positions in insertion order.
func (s *Store) Positions() []float64 {
	out := make([]float64, len(s.markers))
	for i, m := range s.markers {
		out[i] = m.Position
	}
	return out
}

// AutoDistribute replaces all markers with pageCount-1 evenly spaced ones:
// marker i (1..pageCount-1) sits at rangeMin + i/pageCount*(rangeMax-rangeMin).
// With pageCount <= 1 the store is left empty.
func (s *Store) AutoDistribute(pageCount int, rangeMin, rangeMax float64) {
	s.Clear()
	if pageCount <= 1 {
		return
	}
	span := rangeMax - rangeMin
	for i := 1; i < pageCount; i++ {
		s.Add(rangeMin + (float64(i)/float64(pageCount))*span)
	}
}

// SetRange sets the time range used to clamp drags.
func (s *Store) SetRange(minPos, maxPos float64) error {
	if maxPos < minPos {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, minPos, maxPos)
	}
	s.min, s.max = minPos, maxPos
	return nil
}

// Range returns the current time range.
func (s *Store) Range() (minPos, maxPos float64) {
	return s.min, s.max
}

// InRange reports whether position lies inside the current range.
func (s *Store) InRange(position float64) bool {
	return position >= s.min && position <= s.max
}

// BeginDrag flags a marker as being dragged.
func (s *Store) BeginDrag(id model.MarkerID) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}
	s.markers[i].Dragging = true
	return nil
}

// DragTo moves a marker, clamping the position to the store range.
func (s *Store) DragTo(id model.MarkerID, position float64) (model.Marker, error) {
	i := s.index(id)
	if i < 0 {
		return model.Marker{}, fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}
	s.markers[i].Position = s.clamp(position)
	return s.markers[i], nil
}

// EndDrag clears the dragging flag.
func (s *Store) EndDrag(id model.MarkerID) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}
	s.markers[i].Dragging = false
	return nil
}

func (s *Store) clamp(position float64) float64 {
	if position < s.min {
		return s.min
	}
	if position > s.max {
		return s.max
	}
	return position
}

func (s *Store) index(id model.MarkerID) int {
	for i := range s.markers {
		if s.markers[i].ID == id {
			return i
		}
	}
	return -1
}
