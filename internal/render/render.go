// Package render draws the three-pass visualization frame: background quad,
// additive particle points and the alpha-blended foreground.
//
// All Device and Display methods must be called from the goroutine that
// called Open. The SDL backend additionally requires that goroutine to be
// locked to its OS thread.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/guidoenr/ravelizer/internal/particles"
)

// ErrBackendUnavailable is returned when the binary was built without a
// windowing backend.
var ErrBackendUnavailable = errors.New("SDL backend not enabled; rebuild with -tags sdl")

// Resolution is the drawable size in pixels.
type Resolution struct {
	Width  float32
	Height float32
}

// Aspect returns height divided by width.
func (r Resolution) Aspect() float32 {
	if r.Width == 0 {
		return 1
	}
	return r.Height / r.Width
}

// drawableResolution converts a GL drawable size, which is in pixels even on
// HiDPI displays where window coordinates are not.
func drawableResolution(w, h int32) Resolution {
	return Resolution{Width: float32(w), Height: float32(h)}
}

// Vec returns the resolution as a shader vec2.
func (r Resolution) Vec() [2]float32 {
	return [2]float32{r.Width, r.Height}
}

// Event is what woke up a Display wait.
type Event int

const (
	// EventTimer means the wait deadline was reached.
	EventTimer Event = iota
	// EventClose means the platform asked to close the window.
	EventClose
)

func (e Event) String() string {
	if e == EventClose {
		return "close"
	}
	return "timer"
}

// Display owns the window and the platform event loop.
type Display interface {
	// Open creates a full-screen window on the primary display.
	Open(title string) (Resolution, error)
	// Wait blocks until deadline or until a close request arrives.
	Wait(deadline time.Time) Event
	// Close releases the window and its context.
	Close() error
	// Teardown runs a final minimal event loop so the released window is
	// fully removed by the platform.
	Teardown()
}

// Device owns the GPU resources bound to the display context.
type Device interface {
	Build(scene Scene) error
	Clear(color [4]float32)
	WriteSpectrum(texels []float32) error
	Draw(pass Pass, uniforms Uniforms) error
	Present() error
	Release()
}

// Backend is a Display together with the Device living in its context.
type Backend interface {
	Display
	Device
}

// Factory creates a fresh backend for one run.
type Factory func() (Backend, error)

// SDLOptions configures the SDL backend.
type SDLOptions struct {
	VSync   bool
	Display int
}

// Scene is everything a Device needs to build its resources.
type Scene struct {
	Assets    *Assets
	Particles []particles.Particle
	Bars      int
}

// Program identifies one of the three shader programs.
type Program int

const (
	ProgramBackground Program = iota
	ProgramParticles
	ProgramForeground
	programCount
)

func (p Program) String() string {
	switch p {
	case ProgramBackground:
		return "background"
	case ProgramParticles:
		return "particle"
	case ProgramForeground:
		return "foreground"
	default:
		return fmt.Sprintf("program(%d)", int(p))
	}
}

// Mesh identifies the geometry a pass draws.
type Mesh int

const (
	// MeshQuad is a 3-vertex triangle list covering the screen.
	MeshQuad Mesh = iota
	// MeshParticles is one point instanced per particle.
	MeshParticles
)

// BlendMode selects the blending equation of a pass.
type BlendMode int

const (
	BlendNone BlendMode = iota
	// BlendAdditive adds source and destination with factor one for color
	// and alpha.
	BlendAdditive
	// BlendAlpha is standard source-alpha blending.
	BlendAlpha
)

// Pass describes one draw call of the frame.
type Pass struct {
	Name      string
	Program   Program
	Mesh      Mesh
	Blend     BlendMode
	PointSize float32
}

// Texture identifies a texture owned by the device.
type Texture int

const (
	TextureSpectrum Texture = iota
	TextureLogo
	textureCount
)

// Wrap is a sampler wrap function.
type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapClampToBorder
)

// Filter is a sampler minification filter.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Sampler binds a texture to a sampler uniform.
type Sampler struct {
	Texture   Texture
	Wrap      Wrap
	MinFilter Filter
}

// Uniform is a named shader input. Value is one of float32, [2]float32,
// [3]float32 or Sampler.
type Uniform struct {
	Name  string
	Value any
}

// Uniforms is the ordered uniform set of a pass.
type Uniforms []Uniform

// Lookup returns the value bound to name.
func (u Uniforms) Lookup(name string) (any, bool) {
	for _, entry := range u {
		if entry.Name == name {
			return entry.Value, true
		}
	}
	return nil, false
}

// ShaderError carries the compiler or linker diagnostic of a program.
type ShaderError struct {
	Program string
	Stage   string
	Log     string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("%s program: %s failed: %s", e.Program, e.Stage, e.Log)
}
