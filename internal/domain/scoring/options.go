package scoring

import (
	"fmt"
	"strings"
	"time"
)

// MissingPolicy decides how a leaf metric absent from the input is treated.
// One policy applies to every entity scored by an Engine.
type MissingPolicy int

const (
	// MissingAsZero scores an absent metric as 0.0, the worst case.
	MissingAsZero MissingPolicy = iota
	// MissingRenormalize drops absent metrics and spreads their weight over the
	// present siblings. A component with nothing present is dropped the same way.
	MissingRenormalize
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingAsZero:
		return "zero"
	case MissingRenormalize:
		return "renormalize"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", int(p))
	}
}

// ParseMissingPolicy parses "zero" or "renormalize". Empty means zero.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return MissingAsZero, nil
	case "renormalize":
		return MissingRenormalize, nil
	default:
		return 0, fmt.Errorf("unknown missing metric policy %q", s)
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithThresholds sets the recommendation band bounds. They are validated by NewEngine.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithMissingPolicy sets how absent metrics are scored.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithClock overrides the analysis timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how analysis IDs are produced.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}
