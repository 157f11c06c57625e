//go:build sdl

package render

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/veandco/go-sdl2/img"
	"github.com/veandco/go-sdl2/sdl"
)

// Attribute slots shared by every program; bound before linking.
const (
	attribPosition uint32 = iota
	attribTranslation
	attribStartZ
	attribSpeed
)

// teardownPumps is how many event pumps the teardown loop runs after the
// window is destroyed.
const teardownPumps = 8

type sdlBackend struct {
	opts SDLOptions

	videoInit  bool
	window     *sdl.Window
	context    sdl.GLContext
	resolution Resolution

	programs [programCount]uint32
	uniforms [programCount]map[string]int32
	textures [textureCount]uint32

	quadVAO, quadVBO                   uint32
	particleVAO, pointVBO, instanceVBO uint32
	particleCount                      int32
	bars                               int32
}

// NewSDL returns the SDL2/OpenGL 3.3 backend.
func NewSDL(opts SDLOptions) (Backend, error) {
	return &sdlBackend{opts: opts}, nil
}

// SDLFactory returns a Factory producing SDL backends.
func SDLFactory(opts SDLOptions) Factory {
	return func() (Backend, error) {
		return NewSDL(opts)
	}
}

// SupportsSDL reports whether the SDL backend is compiled in.
func SupportsSDL() bool { return true }

func (b *sdlBackend) Open(title string) (Resolution, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return Resolution{}, fmt.Errorf("init video: %w", err)
	}
	b.videoInit = true

	bounds, err := sdl.GetDisplayBounds(b.opts.Display)
	if err != nil {
		return Resolution{}, fmt.Errorf("display bounds: %w", err)
	}

	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 3)
	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
	_ = sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	_ = sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)

	window, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		bounds.W, bounds.H,
		sdl.WINDOW_OPENGL|sdl.WINDOW_FULLSCREEN_DESKTOP|sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return Resolution{}, fmt.Errorf("create window: %w", err)
	}
	b.window = window

	ctx, err := window.GLCreateContext()
	if err != nil {
		return Resolution{}, fmt.Errorf("create GL context: %w", err)
	}
	b.context = ctx

	if err := gl.Init(); err != nil {
		return Resolution{}, fmt.Errorf("load GL: %w", err)
	}
	if b.opts.VSync {
		if err := sdl.GLSetSwapInterval(1); err != nil {
			// not fatal, the loop keeps its own cadence
			_ = sdl.GLSetSwapInterval(0)
		}
	}

	w, h := window.GLGetDrawableSize()
	gl.Viewport(0, 0, w, h)
	gl.Disable(gl.DEPTH_TEST)

	b.resolution = drawableResolution(w, h)
	return b.resolution, nil
}

func (b *sdlBackend) Wait(deadline time.Time) Event {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				if isCloseEvent(event) {
					return EventClose
				}
			}
			return EventTimer
		}
		ms := int((remaining + time.Millisecond - 1) / time.Millisecond)
		if event := sdl.WaitEventTimeout(ms); event != nil && isCloseEvent(event) {
			return EventClose
		}
	}
}

func isCloseEvent(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return true
	case *sdl.WindowEvent:
		return e.Event == sdl.WINDOWEVENT_CLOSE
	}
	return false
}

func (b *sdlBackend) Close() error {
	var errs []error
	if b.context != nil {
		sdl.GLDeleteContext(b.context)
		b.context = nil
	}
	if b.window != nil {
		if err := b.window.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy window: %w", err))
		}
		b.window = nil
	}
	return errors.Join(errs...)
}

func (b *sdlBackend) Teardown() {
	if !b.videoInit {
		return
	}
	for i := 0; i < teardownPumps; i++ {
		sdl.PumpEvents()
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		}
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	b.videoInit = false
}

func (b *sdlBackend) Build(scene Scene) error {
	if scene.Assets == nil {
		return errors.New("build: no assets")
	}
	src := scene.Assets.Shaders
	quadAttribs := map[uint32]string{attribPosition: "position"}
	particleAttribs := map[uint32]string{
		attribPosition:    "position",
		attribTranslation: "translation",
		attribStartZ:      "start_z",
		attribSpeed:       "speed",
	}

	specs := []struct {
		program  Program
		vertex   string
		fragment string
		attribs  map[uint32]string
	}{
		{ProgramBackground, src.QuadVertex, src.Background, quadAttribs},
		{ProgramForeground, src.QuadVertex, src.Foreground, quadAttribs},
		{ProgramParticles, src.ParticleVertex, src.ParticleFragment, particleAttribs},
	}
	for _, spec := range specs {
		program, err := linkProgram(spec.program.String(), spec.vertex, spec.fragment, spec.attribs)
		if err != nil {
			return err
		}
		b.programs[spec.program] = program
		b.uniforms[spec.program] = make(map[string]int32)
	}

	b.buildQuad()
	b.buildParticles(scene)

	b.bars = int32(scene.Bars)
	b.textures[TextureSpectrum] = newTexture(b.bars, 1, nil)

	logo, w, h, err := decodeLogo(scene.Assets.Logo)
	if err != nil {
		return &AssetError{Path: scene.Assets.LogoPath, Err: err}
	}
	b.textures[TextureLogo] = newTexture(w, h, logo)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("build resources: GL error 0x%x", code)
	}
	return nil
}

func (b *sdlBackend) buildQuad() {
	vertices := make([]float32, 3*2)
	gl.GenVertexArrays(1, &b.quadVAO)
	gl.BindVertexArray(b.quadVAO)
	gl.GenBuffers(1, &b.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.VertexAttribPointer(attribPosition, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(attribPosition)
	gl.BindVertexArray(0)
}

func (b *sdlBackend) buildParticles(scene Scene) {
	point := []float32{0, 0}
	gl.GenVertexArrays(1, &b.particleVAO)
	gl.BindVertexArray(b.particleVAO)

	gl.GenBuffers(1, &b.pointVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.pointVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(point)*4, gl.Ptr(point), gl.STATIC_DRAW)
	gl.VertexAttribPointer(attribPosition, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(attribPosition)

	// translation.xy, start_z, speed
	const stride = 4 * 4
	instances := make([]float32, 0, len(scene.Particles)*4)
	for _, p := range scene.Particles {
		instances = append(instances, p.Translation[0], p.Translation[1], p.StartZ, p.Speed)
	}
	b.particleCount = int32(len(scene.Particles))

	gl.GenBuffers(1, &b.instanceVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.instanceVBO)
	if len(instances) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(instances)*4, gl.Ptr(instances), gl.STATIC_DRAW)
	}
	gl.VertexAttribPointer(attribTranslation, 2, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.VertexAttribPointer(attribStartZ, 1, gl.FLOAT, false, stride, gl.PtrOffset(2*4))
	gl.VertexAttribPointer(attribSpeed, 1, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	for _, attrib := range []uint32{attribTranslation, attribStartZ, attribSpeed} {
		gl.EnableVertexAttribArray(attrib)
		gl.VertexAttribDivisor(attrib, 1)
	}
	gl.BindVertexArray(0)
}

func newTexture(width, height int32, rgba []byte) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	var pixels unsafe.Pointer
	if len(rgba) > 0 {
		pixels = gl.Ptr(rgba)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// decodeLogo returns tightly packed RGBA rows, bottom row first.
func decodeLogo(data []byte) ([]byte, int32, int32, error) {
	rw, err := sdl.RWFromMem(data)
	if err != nil {
		return nil, 0, 0, err
	}
	surface, err := img.LoadRW(rw, true)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode logo: %w", err)
	}
	defer surface.Free()

	rgba, err := surface.ConvertFormat(sdl.PIXELFORMAT_ABGR8888, 0)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("convert logo: %w", err)
	}
	defer rgba.Free()

	if err := rgba.Lock(); err != nil {
		return nil, 0, 0, err
	}
	defer rgba.Unlock()

	w, h, pitch := int(rgba.W), int(rgba.H), int(rgba.Pitch)
	src := rgba.Pixels()
	row := w * 4
	out := make([]byte, row*h)
	for y := 0; y < h; y++ {
		copy(out[(h-1-y)*row:(h-y)*row], src[y*pitch:y*pitch+row])
	}
	return out, int32(w), int32(h), nil
}

func linkProgram(name, vertexSrc, fragmentSrc string, attribs map[uint32]string) (uint32, error) {
	vertex, err := compileShader(name, vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertex)
	fragment, err := compileShader(name, fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragment)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	for index, attrib := range attribs {
		gl.BindAttribLocation(program, index, gl.Str(attrib+"\x00"))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(program)
		return 0, &ShaderError{Program: name, Stage: "link", Log: strings.TrimRight(logText, "\x00")}
	}
	return program, nil
}

func compileShader(name, source string, shaderType uint32) (uint32, error) {
	stage := "vertex compile"
	if shaderType == gl.FRAGMENT_SHADER {
		stage = "fragment compile"
	}

	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, &ShaderError{Program: name, Stage: stage, Log: strings.TrimRight(logText, "\x00")}
	}
	return shader, nil
}

func (b *sdlBackend) Clear(color [4]float32) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.ClearDepth(1)
	gl.ClearStencil(0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
}

func (b *sdlBackend) WriteSpectrum(texels []float32) error {
	if int32(len(texels)) < b.bars*4 {
		return fmt.Errorf("spectrum texels: got %d values, want %d", len(texels), b.bars*4)
	}
	gl.BindTexture(gl.TEXTURE_2D, b.textures[TextureSpectrum])
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, b.bars, 1, gl.RGBA, gl.FLOAT, gl.Ptr(texels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return glError("write spectrum")
}

func (b *sdlBackend) Draw(pass Pass, uniforms Uniforms) error {
	program := b.programs[pass.Program]
	gl.UseProgram(program)

	switch pass.Blend {
	case BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendEquationSeparate(gl.FUNC_ADD, gl.FUNC_ADD)
		gl.BlendFuncSeparate(gl.ONE, gl.ONE, gl.ONE, gl.ONE)
	case BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendEquationSeparate(gl.FUNC_ADD, gl.FUNC_ADD)
		gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	default:
		gl.Disable(gl.BLEND)
	}

	unit := int32(0)
	for _, u := range uniforms {
		loc := b.uniformLocation(pass.Program, u.Name)
		if loc < 0 {
			continue
		}
		switch v := u.Value.(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case [2]float32:
			gl.Uniform2f(loc, v[0], v[1])
		case [3]float32:
			gl.Uniform3f(loc, v[0], v[1], v[2])
		case Sampler:
			b.bindSampler(unit, v)
			gl.Uniform1i(loc, unit)
			unit++
		default:
			return fmt.Errorf("uniform %s: unsupported type %T", u.Name, u.Value)
		}
	}

	switch pass.Mesh {
	case MeshParticles:
		gl.Disable(gl.PROGRAM_POINT_SIZE)
		gl.PointSize(pass.PointSize)
		gl.BindVertexArray(b.particleVAO)
		gl.DrawArraysInstanced(gl.POINTS, 0, 1, b.particleCount)
	default:
		gl.BindVertexArray(b.quadVAO)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
	}
	gl.BindVertexArray(0)
	return glError(pass.Name)
}

func (b *sdlBackend) bindSampler(unit int32, s Sampler) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, b.textures[s.Texture])

	wrap := int32(gl.CLAMP_TO_EDGE)
	if s.Wrap == WrapClampToBorder {
		wrap = gl.CLAMP_TO_BORDER
		border := [4]float32{0, 0, 0, 0}
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)

	minFilter := int32(gl.LINEAR)
	if s.MinFilter == FilterNearest {
		minFilter = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
}

func (b *sdlBackend) uniformLocation(program Program, name string) int32 {
	cache := b.uniforms[program]
	if loc, ok := cache[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(b.programs[program], gl.Str(name+"\x00"))
	cache[name] = loc
	return loc
}

func (b *sdlBackend) Present() error {
	if b.window == nil {
		return errors.New("present: window closed")
	}
	b.window.GLSwap()
	return glError("present")
}

func (b *sdlBackend) Release() {
	for i, program := range b.programs {
		if program != 0 {
			gl.DeleteProgram(program)
			b.programs[i] = 0
		}
	}
	for i := range b.textures {
		if b.textures[i] != 0 {
			gl.DeleteTextures(1, &b.textures[i])
			b.textures[i] = 0
		}
	}
	for _, buf := range []*uint32{&b.quadVBO, &b.pointVBO, &b.instanceVBO} {
		if *buf != 0 {
			gl.DeleteBuffers(1, buf)
			*buf = 0
		}
	}
	for _, vao := range []*uint32{&b.quadVAO, &b.particleVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
			*vao = 0
		}
	}
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}
