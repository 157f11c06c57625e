package params

import (
	"sync"

	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// NoAlarm is the alarm factor that leaves color and intensity derivation
// untouched.
const NoAlarm float32 = -1

// Parameters is the host-supplied input for one render tick.
type Parameters struct {
	// AlarmFactor overrides coloring and intensity when non-negative.
	AlarmFactor float32
	Frame       spectrum.Frame
}

// Alarmed reports whether the alarm override is active.
func (p Parameters) Alarmed() bool {
	return p.AlarmFactor >= 0
}

// Defaults returns silent parameters without alarm.
func Defaults() Parameters {
	return Parameters{AlarmFactor: NoAlarm}
}

// State is the parameter bundle shared between the host and the render
// goroutine. Writes replace the whole bundle, so a reader never observes a
// frame assembled from two writes.
type State struct {
	mu      sync.Mutex
	current Parameters
}

// NewState returns a State holding Defaults.
func NewState() *State {
	return &State{current: Defaults()}
}

// Set overwrites the alarm factor and frame.
func (s *State) Set(alarm float32, frame spectrum.Frame) {
	s.Store(Parameters{AlarmFactor: alarm, Frame: frame})
}

// Store overwrites the full parameter bundle.
func (s *State) Store(p Parameters) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

// Snapshot returns a copy of the latest complete write.
func (s *State) Snapshot() Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
