package markers

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithRange sets the valid time range used for drag clamping.
func WithRange(minPos, maxPos float64) Option {
	return func(s *Store) {
		if maxPos >= minPos {
			s.min = minPos
			s.max = maxPos
		}
	}
}
