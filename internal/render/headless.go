package render

import (
	"errors"
	"sync"
	"time"
)

// OpKind is the kind of a recorded device call.
type OpKind int

const (
	OpClear OpKind = iota
	OpWriteSpectrum
	OpDraw
	OpPresent
)

// Op is one device call recorded by Headless.
type Op struct {
	Kind     OpKind
	Pass     Pass
	Uniforms Uniforms
	Texels   []float32
	Color    [4]float32
}

// Headless is a Backend without a window. It honors wait deadlines, accepts
// synthetic close requests and records the calls of the latest frame.
type Headless struct {
	resolution Resolution

	closeReq chan struct{}

	mu        sync.Mutex
	opened    bool
	closed    bool
	tornDown  bool
	released  bool
	scene     *Scene
	frames    int
	current   []Op
	last      []Op
	openErr   error
	buildErr  error
	failAfter int
	failErr   error
}

// NewHeadless returns a headless backend reporting resolution.
func NewHeadless(resolution Resolution) *Headless {
	return &Headless{
		resolution: resolution,
		closeReq:   make(chan struct{}, 1),
	}
}

// HeadlessFactory returns a Factory producing fresh headless backends.
func HeadlessFactory(resolution Resolution) Factory {
	return func() (Backend, error) {
		return NewHeadless(resolution), nil
	}
}

// RequestClose simulates the platform asking the window to close.
func (h *Headless) RequestClose() {
	select {
	case h.closeReq <- struct{}{}:
	default:
	}
}

// FailOpen makes the next Open return err.
func (h *Headless) FailOpen(err error) {
	h.mu.Lock()
	h.openErr = err
	h.mu.Unlock()
}

// FailBuild makes the next Build return err.
func (h *Headless) FailBuild(err error) {
	h.mu.Lock()
	h.buildErr = err
	h.mu.Unlock()
}

// FailPresentAfter makes Present return err once frames frames have been
// presented successfully.
func (h *Headless) FailPresentAfter(frames int, err error) {
	h.mu.Lock()
	h.failAfter = frames
	h.failErr = err
	h.mu.Unlock()
}

func (h *Headless) Open(string) (Resolution, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opened {
		return Resolution{}, errors.New("headless display already open")
	}
	if h.openErr != nil {
		return Resolution{}, h.openErr
	}
	h.opened = true
	return h.resolution, nil
}

func (h *Headless) Wait(deadline time.Time) Event {
	select {
	case <-h.closeReq:
		return EventClose
	default:
	}
	wait := time.Until(deadline)
	if wait <= 0 {
		return EventTimer
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-h.closeReq:
		return EventClose
	case <-timer.C:
		return EventTimer
	}
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *Headless) Teardown() {
	h.mu.Lock()
	h.tornDown = true
	h.mu.Unlock()
}

func (h *Headless) Build(scene Scene) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.buildErr != nil {
		return h.buildErr
	}
	h.scene = &scene
	return nil
}

func (h *Headless) Clear(color [4]float32) {
	h.record(Op{Kind: OpClear, Color: color})
}

func (h *Headless) WriteSpectrum(texels []float32) error {
	cp := make([]float32, len(texels))
	copy(cp, texels)
	h.record(Op{Kind: OpWriteSpectrum, Texels: cp})
	return nil
}

func (h *Headless) Draw(pass Pass, uniforms Uniforms) error {
	cp := make(Uniforms, len(uniforms))
	copy(cp, uniforms)
	h.record(Op{Kind: OpDraw, Pass: pass, Uniforms: cp})
	return nil
}

func (h *Headless) Present() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failErr != nil && h.frames >= h.failAfter {
		return h.failErr
	}
	h.current = append(h.current, Op{Kind: OpPresent})
	h.last = h.current
	h.current = nil
	h.frames++
	return nil
}

func (h *Headless) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

func (h *Headless) record(op Op) {
	h.mu.Lock()
	h.current = append(h.current, op)
	h.mu.Unlock()
}

// Frames returns the number of presented frames.
func (h *Headless) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// LastFrame returns the calls of the most recently presented frame.
func (h *Headless) LastFrame() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Op, len(h.last))
	copy(out, h.last)
	return out
}

// Scene returns the scene passed to Build, or nil.
func (h *Headless) Scene() *Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scene
}

// Lifecycle reports which lifecycle steps have run.
func (h *Headless) Lifecycle() (opened, released, closed, tornDown bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened, h.released, h.closed, h.tornDown
}
