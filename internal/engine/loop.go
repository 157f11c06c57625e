// Package engine runs the visualization: it owns the window for the
// lifetime of one run, wakes at the target rate, turns the latest
// parameters into a frame and measures the achieved frame rate.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/guidoenr/ravelizer/internal/palette"
	"github.com/guidoenr/ravelizer/internal/particles"
	"github.com/guidoenr/ravelizer/internal/render"
	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// WindowTitle is the title of the visualization window.
const WindowTitle = "Raveberry"

// Phase is the lifecycle phase of a Loop.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseExiting
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseExiting:
		return "exiting"
	case PhaseTornDown:
		return "torn-down"
	default:
		return "idle"
	}
}

// Config describes one run.
type Config struct {
	Root        string
	Variant     string
	TargetRate  float32
	Particles   int
	FPSWindow   float32
	ProfilePath string
	Log         zerolog.Logger

	// Now and Rand default to the wall clock and a time-seeded source.
	Now  func() time.Time
	Rand *rand.Rand
}

// Loop is a single visualization run. It must be driven from one goroutine,
// locked to its OS thread when the backend requires it.
type Loop struct {
	cfg     Config
	log     zerolog.Logger
	shared  *Shared
	backend render.Backend
	period  time.Duration

	phase      atomic.Int32
	compositor *render.Compositor
	fps        *FPSMeter
	prof       *profiler

	lastTick       time.Time
	elapsed        time.Duration
	totalIntensity float32
	frames         atomic.Uint64
}

// New prepares a run on backend. Nothing is opened until Start.
func New(cfg Config, shared *Shared, backend render.Backend) *Loop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	period := time.Second
	if cfg.TargetRate > 0 {
		period = time.Duration(float64(time.Second) / float64(cfg.TargetRate))
	}
	return &Loop{
		cfg:     cfg,
		log:     cfg.Log.With().Str("component", "engine").Str("variant", cfg.Variant).Logger(),
		shared:  shared,
		backend: backend,
		period:  period,
	}
}

// Phase returns the current lifecycle phase.
func (l *Loop) Phase() Phase {
	return Phase(l.phase.Load())
}

// Frames returns the number of frames presented so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Start opens the window, loads the variant assets and builds every GPU
// resource. On failure everything acquired so far is released and the loop
// is torn down.
func (l *Loop) Start() error {
	l.setPhase(PhaseStarting)

	assets, err := render.LoadAssets(l.cfg.Root, l.cfg.Variant)
	if err != nil {
		l.setPhase(PhaseTornDown)
		return err
	}

	res, err := l.backend.Open(WindowTitle)
	if err != nil {
		// Open can fail with the window already created.
		if cerr := l.backend.Close(); cerr != nil {
			l.log.Warn().Err(cerr).Msg("close window after failed open")
		}
		l.backend.Teardown()
		l.setPhase(PhaseTornDown)
		return fmt.Errorf("open window: %w", err)
	}

	kind := particles.KindFor(l.cfg.Variant)
	field := particles.Generate(kind, l.cfg.Particles, res.Aspect(), l.cfg.Rand)

	l.compositor = render.NewCompositor(l.backend, res)
	if err := l.compositor.Build(assets, field); err != nil {
		l.shutdown()
		return fmt.Errorf("build %s: %w", l.cfg.Variant, err)
	}

	now := l.cfg.Now()
	l.lastTick = now
	l.fps = NewFPSMeter(l.cfg.TargetRate, l.cfg.FPSWindow, now)
	l.prof = newProfiler(l.cfg.ProfilePath, l.log)

	l.log.Info().
		Float32("ups", l.cfg.TargetRate).
		Int("particles", len(field)).
		Str("field", kind.String()).
		Float32("width", res.Width).
		Float32("height", res.Height).
		Msg("visualization started")
	return nil
}

// Run wakes at the target rate and renders until a stop is requested, the
// window is closed or a frame fails. It always tears the loop down before
// returning; the returned error is the frame failure, if any.
func (l *Loop) Run() error {
	l.setPhase(PhaseRunning)

	var runErr error
	next := l.cfg.Now()
	for {
		if l.backend.Wait(next) == render.EventClose {
			l.log.Info().Msg("window closed")
			break
		}
		if l.shared.Run.ShouldExit() {
			break
		}
		next = l.cfg.Now().Add(l.period)
		if err := l.tick(); err != nil {
			runErr = err
			l.log.Error().Err(err).Msg("frame failed, stopping visualization")
			break
		}
	}

	l.shutdown()
	l.log.Info().Uint64("frames", l.Frames()).Msg("visualization stopped")
	return runErr
}

func (l *Loop) tick() error {
	l.prof.beginTick()

	p := l.shared.Params.Snapshot()
	smoothed := spectrum.Smooth(p.Frame)
	current := spectrum.Intensity(smoothed)
	if p.Alarmed() {
		current = p.AlarmFactor
	}
	l.prof.markSection("smooth")

	seconds := float32(l.elapsed.Seconds())
	l.totalIntensity += current
	var fraction float32
	if seconds > 0 && l.cfg.TargetRate > 0 {
		fraction = l.totalIntensity / seconds / l.cfg.TargetRate
	}
	colors := palette.Derive(seconds, l.totalIntensity, p.AlarmFactor)
	l.prof.markSection("derive")

	err := l.compositor.Render(render.FrameState{
		Spectrum:          smoothed,
		Elapsed:           seconds,
		CurrentIntensity:  current,
		IntensityFraction: fraction,
		Colors:            colors,
	})
	l.prof.markSection("draw")
	if err != nil {
		return err
	}

	now := l.cfg.Now()
	l.elapsed += now.Sub(l.lastTick)
	l.lastTick = now
	l.frames.Add(1)
	if fps, ok := l.fps.Tick(now); ok {
		l.shared.PublishFPS(fps)
		l.log.Debug().Float32("fps", fps).Msg("frame rate measured")
	}
	l.prof.endTick()
	return nil
}

func (l *Loop) shutdown() {
	l.setPhase(PhaseExiting)
	l.backend.Release()
	if err := errors.Join(l.backend.Close(), l.prof.Close()); err != nil {
		l.log.Warn().Err(err).Msg("release window")
	}
	l.backend.Teardown()
	l.setPhase(PhaseTornDown)
}

func (l *Loop) setPhase(p Phase) {
	l.phase.Store(int32(p))
}
