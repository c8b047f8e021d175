package clock

import (
	"sync"
	"time"
)

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithNow replaces the wall clock, mainly for tests.
func WithNow(now func() time.Time) TransportOption {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLength sets the initial track length in seconds.
func WithLength(seconds float64) TransportOption {
	return func(t *Transport) {
		t.length = max(seconds, 0)
	}
}

// Transport is a software audio transport: it advances with real time while
// playing and stops by itself at the end of the track.
type Transport struct {
	mu        sync.Mutex
	now       func() time.Time
	length    float64
	base      float64
	startedAt time.Time
	playing   bool
}

// NewTransport creates a stopped transport at position 0.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Position returns the current position, never beyond Length.
func (t *Transport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

// Length returns the track length.
func (t *Transport) Length() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.length
}

// IsPlaying reports whether the transport is running.
func (t *Transport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positionLocked()
	return t.playing
}

// Seek moves to seconds, clamped to [0, Length]. Playback state is kept.
func (t *Transport) Seek(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = clamp(seconds, 0, t.length)
	t.startedAt = t.now()
}

// Start resumes playback. At the end of the track it does nothing.
func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing || t.base >= t.length {
		return
	}
	t.playing = true
	t.startedAt = t.now()
}

// Stop pauses playback at the current position.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = t.positionLocked()
	t.playing = false
}

// SetLength replaces the loaded track: the transport stops and rewinds.
func (t *Transport) SetLength(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.length = max(seconds, 0)
	t.base = 0
	t.playing = false
}

func (t *Transport) positionLocked() float64 {
	if !t.playing {
		return t.base
	}
	pos := t.base + t.now().Sub(t.startedAt).Seconds()
	if pos >= t.length {
		t.base = t.length
		t.playing = false
		return t.length
	}
	return pos
}
