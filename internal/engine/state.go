package engine

import (
	"math"
	"sync/atomic"

	"github.com/guidoenr/ravelizer/internal/params"
)

// NoFPS is published until the first measurement of a run completes.
const NoFPS float32 = -1

// RunState holds the liveness flags shared with the host.
type RunState struct {
	active     atomic.Bool
	shouldExit atomic.Bool
}

// Active reports whether a render goroutine is alive.
func (r *RunState) Active() bool { return r.active.Load() }

// ShouldExit reports whether a stop has been requested.
func (r *RunState) ShouldExit() bool { return r.shouldExit.Load() }

// RequestExit asks the render loop to stop at its next wake-up.
func (r *RunState) RequestExit() { r.shouldExit.Store(true) }

// Begin clears the exit request and marks the run active. It returns false
// if a run was already active.
func (r *RunState) Begin() bool {
	if !r.active.CompareAndSwap(false, true) {
		return false
	}
	r.shouldExit.Store(false)
	return true
}

// End marks the run inactive.
func (r *RunState) End() { r.active.Store(false) }

// Shared is the state a render goroutine shares with its controller.
type Shared struct {
	Params *params.State
	Run    RunState

	fps atomic.Uint32
}

// NewShared returns shared state with default parameters and no FPS.
func NewShared() *Shared {
	s := &Shared{Params: params.NewState()}
	s.ResetFPS()
	return s
}

// FPS returns the most recently published average.
func (s *Shared) FPS() float32 {
	return math.Float32frombits(s.fps.Load())
}

// PublishFPS stores a new average.
func (s *Shared) PublishFPS(v float32) {
	s.fps.Store(math.Float32bits(v))
}

// ResetFPS restores NoFPS.
func (s *Shared) ResetFPS() {
	s.PublishFPS(NoFPS)
}
