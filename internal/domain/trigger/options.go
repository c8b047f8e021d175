package trigger

import "github.com/okian/pagecue/pkg/logger"

// Policy decides what happens when several markers become eligible in the
// same evaluation.
type Policy int

const (
	// PolicyEmitEach emits one AdvancePage per fired marker.
	PolicyEmitEach Policy = iota
	// PolicyEmitOnce fires every eligible marker but emits a single
	// AdvancePage for the first of them.
	PolicyEmitOnce
)

// String returns the config name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyEmitOnce:
		return "emit_once"
	default:
		return "emit_each"
	}
}

// ParsePolicy maps a config value to a Policy. Unknown values yield false.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "emit_each", "each":
		return PolicyEmitEach, true
	case "emit_once", "once":
		return PolicyEmitOnce, true
	default:
		return PolicyEmitEach, false
	}
}

// Option applies a configuration option to the engine.
type Option func(*engine)

// WithPolicy sets the simultaneous-trigger policy.
func WithPolicy(p Policy) Option {
	return func(e *engine) {
		e.policy = p
	}
}

// WithLogger sets the logger used for fired markers.
func WithLogger(l logger.Logger) Option {
	return func(e *engine) {
		if l != nil {
			e.log = l
		}
	}
}
