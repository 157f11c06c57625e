package render

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guidoenr/ravelizer/internal/palette"
	"github.com/guidoenr/ravelizer/internal/particles"
	"github.com/guidoenr/ravelizer/internal/spectrum"
	"github.com/guidoenr/ravelizer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAssets(t *testing.T) {
	root := testutil.WriteAssets(t, "Circle")

	assets, err := LoadAssets(root, "Circle")
	require.NoError(t, err)
	assert.Equal(t, "Circle", assets.Variant)
	assert.Contains(t, assets.Shaders.QuadVertex, "Circle/quad.vs")
	assert.Contains(t, assets.Shaders.Background, "background.fs")
	assert.Contains(t, assets.Shaders.Foreground, "foreground.fs")
	assert.Contains(t, assets.Shaders.ParticleVertex, "particle.vs")
	assert.Contains(t, assets.Shaders.ParticleFragment, "particle.fs")
	assert.NotEmpty(t, assets.Logo)
	assert.Equal(t, filepath.Join(root, "images", "logo.png"), assets.LogoPath)
}

func TestLoadAssetsNamesMissingFile(t *testing.T) {
	root := testutil.WriteAssets(t, "Circle")
	missing := filepath.Join(root, "shaders", "Circle", "foreground.fs")
	require.NoError(t, os.Remove(missing))

	_, err := LoadAssets(root, "Circle")
	require.Error(t, err)

	var assetErr *AssetError
	require.ErrorAs(t, err, &assetErr)
	assert.Equal(t, missing, assetErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestLoadAssetsMissingLogo(t *testing.T) {
	root := testutil.WriteAssets(t, "Circle")
	logo := filepath.Join(root, "images", "logo.png")
	require.NoError(t, os.Remove(logo))

	_, err := LoadAssets(root, "Circle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), logo)
}

func TestListVariants(t *testing.T) {
	root := testutil.WriteAssets(t, "SnowyCircle", "Circle")
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "README"), []byte("x"), 0o644))

	names, err := ListVariants(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Circle", "SnowyCircle"}, names)

	empty, err := ListVariants(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestCompositorDrawSequence(t *testing.T) {
	res := Resolution{Width: 1920, Height: 1080}
	device := NewHeadless(res)
	c := NewCompositor(device, res)
	require.NoError(t, c.Build(&Assets{Variant: "Circle"}, particles.Generate(particles.KindRing, 10, res.Aspect(), rand.New(rand.NewSource(1)))))

	var frame spectrum.Frame
	frame[3] = 0.5
	colors := palette.Colors{
		Top:    palette.RGB{0.1, 0.2, 0.3},
		Bottom: palette.RGB{0.4, 0.5, 0.6},
		Recent: palette.RGB{0.1, 0.2, 0.3},
		Past:   palette.RGB{0.7, 0.8, 0.9},
		Shake:  [2]float32{0.001, -0.002},
	}
	require.NoError(t, c.Render(FrameState{
		Spectrum:          frame,
		Elapsed:           2.5,
		CurrentIntensity:  0.25,
		IntensityFraction: 0.125,
		Colors:            colors,
	}))

	ops := device.LastFrame()
	require.Len(t, ops, 6)
	assert.Equal(t, OpClear, ops[0].Kind)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, ops[0].Color)

	assert.Equal(t, OpWriteSpectrum, ops[1].Kind)
	require.Len(t, ops[1].Texels, spectrum.Bars*4)
	assert.Equal(t, []float32{0.5, 0, 0, 0}, ops[1].Texels[12:16])

	bg, parts, fg := ops[2], ops[3], ops[4]
	assert.Equal(t, ProgramBackground, bg.Pass.Program)
	assert.Equal(t, BlendNone, bg.Pass.Blend)
	assert.Equal(t, ProgramParticles, parts.Pass.Program)
	assert.Equal(t, BlendAdditive, parts.Pass.Blend)
	assert.Equal(t, MeshParticles, parts.Pass.Mesh)
	assert.Equal(t, float32(ParticlePointSize), parts.Pass.PointSize)
	assert.Equal(t, ProgramForeground, fg.Pass.Program)
	assert.Equal(t, BlendAlpha, fg.Pass.Blend)
	assert.Equal(t, OpPresent, ops[5].Kind)

	assertUniform(t, bg.Uniforms, "RESOLUTION", [2]float32{1920, 1080})
	assertUniform(t, bg.Uniforms, "top_color", [3]float32{0.1, 0.2, 0.3})
	assertUniform(t, bg.Uniforms, "bot_color", [3]float32{0.4, 0.5, 0.6})

	assertUniform(t, parts.Uniforms, "PARTICLE_SPAWN_Z", float32(2))
	assertUniform(t, parts.Uniforms, "time_elapsed", float32(2.5))
	assertUniform(t, parts.Uniforms, "intensity_fraction", float32(0.125))

	assertUniform(t, fg.Uniforms, "BARS", float32(spectrum.Bars))
	assertUniform(t, fg.Uniforms, "current_intensity", float32(0.25))
	assertUniform(t, fg.Uniforms, "shake", [2]float32{0.001, -0.002})
	assertUniform(t, fg.Uniforms, "recent_color", [3]float32{0.1, 0.2, 0.3})
	assertUniform(t, fg.Uniforms, "past_color", [3]float32{0.7, 0.8, 0.9})
	assertUniform(t, fg.Uniforms, "logo", Sampler{Texture: TextureLogo, Wrap: WrapClampToBorder, MinFilter: FilterLinear})
	assertUniform(t, fg.Uniforms, "spectrum", Sampler{Texture: TextureSpectrum, Wrap: WrapClampToEdge, MinFilter: FilterLinear})
}

func TestCompositorPropagatesPresentFailure(t *testing.T) {
	res := Resolution{Width: 640, Height: 480}
	device := NewHeadless(res)
	boom := errors.New("context lost")
	device.FailPresentAfter(0, boom)

	c := NewCompositor(device, res)
	err := c.Render(FrameState{})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, device.Frames())
}

func TestHeadlessWait(t *testing.T) {
	h := NewHeadless(Resolution{Width: 1, Height: 1})

	start := time.Now()
	assert.Equal(t, EventTimer, h.Wait(start.Add(20*time.Millisecond)))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.Equal(t, EventTimer, h.Wait(time.Now().Add(-time.Second)))

	h.RequestClose()
	assert.Equal(t, EventClose, h.Wait(time.Now().Add(time.Hour)))
}

func TestResolutionAspect(t *testing.T) {
	assert.InDelta(t, 0.5625, Resolution{Width: 1920, Height: 1080}.Aspect(), 1e-6)
	assert.Equal(t, float32(1), Resolution{}.Aspect())
}

func TestDrawableResolutionIsInPixels(t *testing.T) {
	// a 1920x1080 point window on a 2x display
	res := drawableResolution(3840, 2160)
	assert.Equal(t, [2]float32{3840, 2160}, res.Vec())
	assert.InDelta(t, 0.5625, res.Aspect(), 1e-6)
}

func assertUniform(t *testing.T, uniforms Uniforms, name string, want any) {
	t.Helper()
	got, ok := uniforms.Lookup(name)
	require.Truef(t, ok, "uniform %s missing", name)
	assert.Equalf(t, want, got, "uniform %s", name)
}

func TestShippedAssets(t *testing.T) {
	root := filepath.Join("..", "..")
	names, err := ListVariants(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Circle", "SnowyCircle"}, names)

	for _, name := range names {
		assets, err := LoadAssets(root, name)
		require.NoError(t, err, name)
		assert.Contains(t, assets.Shaders.ParticleVertex, "in vec2 translation;")
		assert.Contains(t, assets.Shaders.Foreground, "uniform sampler2D spectrum;")
		assert.Equal(t, []byte("\x89PNG"), assets.Logo[:4])
	}
}
