// Package clock provides playback clocks the presenter polls for position.
package clock

// Clock reports the playback position of the loaded track in seconds.
type Clock interface {
	Position() float64
	Length() float64
	IsPlaying() bool
	Seek(seconds float64)
	Start()
	Stop()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Adjustable is a Clock whose track length can be replaced.
type Adjustable interface {
	Clock
	SetLength(seconds float64)
}

var (
	_ Adjustable = (*Transport)(nil)
	_ Adjustable = (*Manual)(nil)
)
