package clock

import "sync"

// Manual is a virtual clock that only moves when told to.
type Manual struct {
	mu       sync.Mutex
	length   float64
	position float64
	playing  bool
}

// NewManual creates a stopped manual clock for a track of length seconds.
func NewManual(length float64) *Manual {
	return &Manual{length: max(length, 0)}
}

func (m *Manual) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Manual) Length() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.length
}

func (m *Manual) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Manual) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = clamp(seconds, 0, m.length)
}

func (m *Manual) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

// SetLength changes the track length and rewinds.
func (m *Manual) SetLength(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.length = max(seconds, 0)
	m.position = 0
	m.playing = false
}

// Advance moves the position forward by seconds while playing. It stops at
// the end of the track.
func (m *Manual) Advance(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.position = clamp(m.position+seconds, 0, m.length)
	if m.position >= m.length {
		m.playing = false
	}
}
