// Package visualization is the control surface of the audio-reactive
// visualizer. A host starts a run for one variant, pushes the latest alarm
// factor and spectrum frame at any rate, polls liveness and frame rate, and
// stops the run.
//
// Each run owns a dedicated goroutine locked to its OS thread; the window,
// its event loop and every GPU resource live on that thread. The host only
// touches the shared parameters and run flags.
package visualization

import (
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guidoenr/ravelizer/internal/engine"
	"github.com/guidoenr/ravelizer/internal/params"
	"github.com/guidoenr/ravelizer/internal/render"
	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// Bars is the number of values in a spectrum frame.
const Bars = spectrum.Bars

// NoFPS is reported by FPS until the first measurement of a run completes.
const NoFPS = engine.NoFPS

// NoAlarm disables the alarm override.
const NoAlarm = params.NoAlarm

// Frame is one spectrum frame.
type Frame = spectrum.Frame

// Options configures a Controller.
type Options struct {
	// Root is the directory holding shaders/<variant>/ and images/logo.png.
	// It may also be set later with SetRootPath.
	Root string
	// Factory creates the window backend of each run.
	Factory render.Factory
	// ProfilePath enables the per-tick CSV profile when non-empty.
	ProfilePath string
	Log         zerolog.Logger
}

// Controller starts and stops visualization runs. Its methods are safe for
// concurrent use.
type Controller struct {
	factory     render.Factory
	profilePath string
	baseLog     zerolog.Logger
	log         zerolog.Logger
	shared      *engine.Shared

	mu      sync.Mutex
	root    string
	variant string
	done    chan struct{}

	errMu   sync.Mutex
	lastErr error
}

// NewController returns an idle controller.
func NewController(opts Options) *Controller {
	done := make(chan struct{})
	close(done)
	return &Controller{
		factory:     opts.Factory,
		profilePath: opts.ProfilePath,
		baseLog:     opts.Log,
		log:         opts.Log.With().Str("component", "controller").Logger(),
		shared:      engine.NewShared(),
		root:        opts.Root,
		done:        done,
	}
}

// SetRootPath sets the base directory assets are resolved against.
func (c *Controller) SetRootPath(path string) {
	c.mu.Lock()
	c.root = path
	c.mu.Unlock()
}

// RootPath returns the asset base directory.
func (c *Controller) RootPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// Variants lists the variant names found under the root path. It returns an
// empty list when none are found or no root path is set.
func (c *Controller) Variants() []string {
	root := c.RootPath()
	if root == "" {
		return []string{}
	}
	names, err := render.ListVariants(root)
	if err != nil {
		c.log.Warn().Err(err).Str("root", root).Msg("list variants")
		return []string{}
	}
	return names
}

// Start launches a run of variant rendering at rate ticks per second with
// count particles, measuring the frame rate over fpsWindow seconds. It
// returns once the window and its resources are built; asset, shader and
// window failures are returned here and leave the controller inactive.
func (c *Controller) Start(variant string, rate float32, count int, fpsWindow float32) error {
	ready, err := c.launch(variant, rate, count, fpsWindow)
	if err != nil {
		return err
	}
	return <-ready
}

// launch validates the request and spawns the render goroutine. The build
// result arrives on the returned channel; c.mu is not held while waiting.
func (c *Controller) launch(variant string, rate float32, count int, fpsWindow float32) (<-chan error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == "" {
		return nil, ErrNoRootPath
	}
	if rate <= 0 || fpsWindow <= 0 || count < 0 {
		return nil, fmt.Errorf("%w: rate %.2f, particles %d, fps window %.2f", ErrInvalidSettings, rate, count, fpsWindow)
	}
	variants, err := render.ListVariants(c.root)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	if !slices.Contains(variants, variant) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	if c.factory == nil {
		return nil, render.ErrBackendUnavailable
	}
	if !c.shared.Run.Begin() {
		return nil, ErrAlreadyActive
	}

	c.shared.ResetFPS()
	c.setErr(nil)
	c.variant = variant

	backend, err := c.factory()
	if err != nil {
		c.shared.Run.End()
		c.setErr(err)
		return nil, fmt.Errorf("create backend: %w", err)
	}

	loop := engine.New(engine.Config{
		Root:        c.root,
		Variant:     variant,
		TargetRate:  rate,
		Particles:   count,
		FPSWindow:   fpsWindow,
		ProfilePath: c.profilePath,
		Log:         c.baseLog,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, c.shared, backend)

	ready := make(chan error, 1)
	done := make(chan struct{})
	go c.run(loop, ready, done)

	c.done = done
	return ready, nil
}

func (c *Controller) run(loop *engine.Loop, ready chan<- error, done chan struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := loop.Start(); err != nil {
		c.log.Error().Err(err).Msg("visualization failed to start")
		c.setErr(err)
		c.shared.Run.End()
		ready <- err
		return
	}
	ready <- nil

	if err := loop.Run(); err != nil {
		c.setErr(err)
	}
	c.shared.Run.End()
}

// Stop asks the active run to exit at its next tick. It does not wait for
// teardown; poll IsActive or use Done for that.
func (c *Controller) Stop() {
	c.shared.Run.RequestExit()
}

// IsActive reports whether a run is active.
func (c *Controller) IsActive() bool {
	return c.shared.Run.Active()
}

// Done returns a channel closed when the latest run has been torn down.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// FPS returns the latest average frame rate, or NoFPS.
func (c *Controller) FPS() float32 {
	return c.shared.FPS()
}

// Variant returns the variant of the latest run.
func (c *Controller) Variant() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variant
}

// Err returns the error that ended the latest run, if any.
func (c *Controller) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// SetParameters replaces the alarm factor and spectrum frame seen by the
// next tick. A negative alarm disables the override.
func (c *Controller) SetParameters(alarm float32, frame Frame) {
	c.shared.Params.Set(alarm, frame)
}

// SetParametersSlice is SetParameters for transports that decode the frame
// into a slice.
func (c *Controller) SetParametersSlice(alarm float32, values []float32) error {
	if len(values) != Bars {
		return &FrameLengthError{Got: len(values)}
	}
	c.shared.Params.Set(alarm, spectrum.FromSlice(values))
	return nil
}

func (c *Controller) setErr(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}
