package render

import (
	"fmt"

	"github.com/guidoenr/ravelizer/internal/palette"
	"github.com/guidoenr/ravelizer/internal/particles"
	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// ParticlePointSize is the fixed point size of the particle pass.
const ParticlePointSize = 25.0

var clearColor = [4]float32{0, 0, 0, 1}

var (
	backgroundPass = Pass{Name: "background", Program: ProgramBackground, Mesh: MeshQuad, Blend: BlendNone}
	particlePass   = Pass{Name: "particles", Program: ProgramParticles, Mesh: MeshParticles, Blend: BlendAdditive, PointSize: ParticlePointSize}
	foregroundPass = Pass{Name: "foreground", Program: ProgramForeground, Mesh: MeshQuad, Blend: BlendAlpha}
)

// FrameState is the derived per-tick input of the compositor.
type FrameState struct {
	// Spectrum is the smoothed frame.
	Spectrum          spectrum.Frame
	Elapsed           float32
	CurrentIntensity  float32
	IntensityFraction float32
	Colors            palette.Colors
}

// Compositor issues the per-tick draw sequence on a Device.
type Compositor struct {
	device     Device
	resolution Resolution
	texels     []float32
}

// NewCompositor binds a compositor to device for a drawable of resolution.
func NewCompositor(device Device, resolution Resolution) *Compositor {
	return &Compositor{
		device:     device,
		resolution: resolution,
		texels:     make([]float32, spectrum.Bars*4),
	}
}

// Build creates the device resources for assets and the particle field.
func (c *Compositor) Build(assets *Assets, field []particles.Particle) error {
	return c.device.Build(Scene{
		Assets:    assets,
		Particles: field,
		Bars:      spectrum.Bars,
	})
}

// Render draws and presents one frame.
func (c *Compositor) Render(f FrameState) error {
	c.device.Clear(clearColor)

	c.texels = spectrum.Texels(f.Spectrum, c.texels)
	if err := c.device.WriteSpectrum(c.texels); err != nil {
		return fmt.Errorf("write spectrum: %w", err)
	}

	res := c.resolution.Vec()
	draws := []struct {
		pass     Pass
		uniforms Uniforms
	}{
		{backgroundPass, Uniforms{
			{"RESOLUTION", res},
			{"top_color", [3]float32(f.Colors.Top)},
			{"bot_color", [3]float32(f.Colors.Bottom)},
		}},
		{particlePass, Uniforms{
			{"RESOLUTION", res},
			{"PARTICLE_SPAWN_Z", float32(particles.SpawnDepth)},
			{"time_elapsed", f.Elapsed},
			{"intensity_fraction", f.IntensityFraction},
		}},
		{foregroundPass, Uniforms{
			{"RESOLUTION", res},
			{"BARS", float32(spectrum.Bars)},
			{"time_elapsed", f.Elapsed},
			{"current_intensity", f.CurrentIntensity},
			{"shake", f.Colors.Shake},
			{"recent_color", [3]float32(f.Colors.Recent)},
			{"past_color", [3]float32(f.Colors.Past)},
			{"logo", Sampler{Texture: TextureLogo, Wrap: WrapClampToBorder, MinFilter: FilterLinear}},
			{"spectrum", Sampler{Texture: TextureSpectrum, Wrap: WrapClampToEdge, MinFilter: FilterLinear}},
		}},
	}
	for _, d := range draws {
		if err := c.device.Draw(d.pass, d.uniforms); err != nil {
			return fmt.Errorf("draw %s: %w", d.pass.Name, err)
		}
	}

	if err := c.device.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}
