// Package analyzer turns captured audio into spectrum frames: a windowed FFT
// folded into log-spaced bands, normalized by a slow peak follower.
package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// minFFTSize leaves at least one bin per band below nyquist.
const minFFTSize = 1024

// Analyzer converts mono sample blocks into spectrum frames. It keeps
// per-band decay and peak state between calls and is not safe for
// concurrent use.
type Analyzer struct {
	sampleRate float64
	maxSize    int
	minHz      float64
	maxHz      float64
	floor      float64
	decay      float32

	peak   float64
	bands  [spectrum.Bars]float64
	prev   spectrum.Frame
	edges  []int
	edgeN  int
	buffer []complex128
	window []float64
}

// Config controls Analyzer behavior.
type Config struct {
	SampleRate float64
	// FFTSize caps the transform length; blocks are zero padded up to the next
	// power of two.
	FFTSize int
	MinHz   float64
	MaxHz   float64
	// NoiseFloor gates band values at or below it to zero.
	NoiseFloor float64
	// Decay is how much of the previous bar survives a quieter block.
	Decay float32
}

// New creates an Analyzer, filling zero fields with defaults.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = 2048
	}
	if cfg.MinHz <= 0 {
		cfg.MinHz = 30
	}
	if cfg.MaxHz <= cfg.MinHz {
		cfg.MaxHz = math.Min(16_000, cfg.SampleRate/2)
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.85
	}
	return &Analyzer{
		sampleRate: cfg.SampleRate,
		maxSize:    nextPow2(cfg.FFTSize),
		minHz:      cfg.MinHz,
		maxHz:      cfg.MaxHz,
		floor:      cfg.NoiseFloor,
		decay:      cfg.Decay,
	}
}

// Analyze returns the spectrum frame for the provided mono samples.
func (a *Analyzer) Analyze(samples []float32) spectrum.Frame {
	if len(samples) == 0 {
		return a.fall()
	}

	size := nextPow2(min(len(samples), a.maxSize))
	if size < minFFTSize {
		size = minFFTSize
	}
	a.ensureWorkspace(size)

	buffer := a.buffer[:size]
	window := a.window[:size]
	for i := 0; i < size; i++ {
		if i < len(samples) {
			buffer[i] = complex(float64(samples[i])*window[i], 0)
			continue
		}
		buffer[i] = 0
	}

	fftRes := fft.FFT(buffer)
	scale := 4.0 / float64(size)
	loudest := 0.0
	for b := 0; b < spectrum.Bars; b++ {
		lo, hi := a.edges[b], a.edges[b+1]
		sum := 0.0
		for _, val := range fftRes[lo:hi] {
			sum += cmag(val)
		}
		a.bands[b] = sum / float64(hi-lo) * scale
		loudest = math.Max(loudest, a.bands[b])
	}

	a.peak = envelope(a.peak, loudest, 0.5, 0.995)

	var out spectrum.Frame
	for b, v := range a.bands {
		level := float32(gate(dynamics(v, a.peak), a.floor))
		out[b] = max(level, a.prev[b]*a.decay)
	}
	a.prev = out
	return out
}

// fall lets every bar decay without new input.
func (a *Analyzer) fall() spectrum.Frame {
	for i := range a.prev {
		a.prev[i] *= a.decay
	}
	return a.prev
}

func (a *Analyzer) ensureWorkspace(size int) {
	if len(a.buffer) != size {
		a.buffer = make([]complex128, size)
	}
	if len(a.window) != size {
		a.window = make([]float64, size)
		sizeF := float64(size)
		for i := range a.window {
			a.window[i] = hann(float64(i), sizeF)
		}
	}
	if a.edgeN != size {
		a.edges = bandEdges(size, a.sampleRate, a.minHz, a.maxHz)
		a.edgeN = size
	}
}

// bandEdges splits [minHz, maxHz] into Bars log-spaced bands and returns the
// FFT bin boundaries. Every band covers at least one bin.
func bandEdges(size int, sampleRate, minHz, maxHz float64) []int {
	resolution := sampleRate / float64(size)
	nyquist := size / 2
	edges := make([]int, spectrum.Bars+1)
	ratio := maxHz / minHz
	for i := range edges {
		hz := minHz * math.Pow(ratio, float64(i)/spectrum.Bars)
		bin := int(math.Round(hz / resolution))
		bin = clampInt(bin, 1, nyquist)
		if i > 0 && bin <= edges[i-1] {
			bin = edges[i-1] + 1
		}
		edges[i] = bin
	}
	// bands crowded past nyquist reuse the top bin
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i] > nyquist {
			edges[i] = nyquist
		}
		if i < len(edges)-1 && edges[i] >= edges[i+1] {
			edges[i] = edges[i+1] - 1
		}
	}
	return edges
}

func hann(i, size float64) float64 {
	return 0.5 * (1.0 - math.Cos(2.0*math.Pi*i/size))
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*attack + input*(1-attack)
	}
	return current * release
}

// dynamics normalizes value against the running peak and gently expands it.
func dynamics(value, peak float64) float64 {
	if peak < 1e-4 {
		return 0
	}
	ratio := clamp(value/peak, 0, 1)
	return math.Pow(ratio, 0.7)
}

// gate applies a noise floor so weak bands are ignored.
func gate(v, floor float64) float64 {
	if floor <= 0 {
		return v
	}
	if v <= floor {
		return 0
	}
	return clamp((v-floor)/(1.0-floor), 0, 1)
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
