package spectrum

// Bars is the number of samples in every spectrum frame.
const Bars = 256

// Frame is one spectrum snapshot as pushed by the host.
type Frame [Bars]float32

// gaussKernel holds the one-sided gaussian with sigma 1.5, truncated after
// 4 sigma (7 taps). Index 0 is the center weight.
var gaussKernel = [...]float32{
	0.2659615202676218,
	0.2129653370149015,
	0.10934004978399577,
	0.035993977675458706,
	0.007597324015864964,
	0.001028185997527405,
	8.92201505099236e-05,
}

// Kernel returns a copy of the smoothing kernel, center weight first.
func Kernel() []float32 {
	out := make([]float32, len(gaussKernel))
	copy(out, gaussKernel[:])
	return out
}

// Radius is the number of neighbors taken into account on each side.
func Radius() int {
	return len(gaussKernel) - 1
}

// Smooth convolves in with the gaussian kernel. Neighbors outside the frame
// are replaced by the nearest edge sample.
func Smooth(in Frame) Frame {
	var out Frame
	SmoothInto(out[:], in[:])
	return out
}

// SmoothInto is the slice form of Smooth. dst and src must have equal length
// and must not overlap.
func SmoothInto(dst, src []float32) {
	n := len(src)
	if n == 0 {
		return
	}
	radius := Radius()
	for i := range dst[:n] {
		var sum float32
		for offset := -radius; offset <= radius; offset++ {
			sum += gaussKernel[abs(offset)] * src[clampIndex(i+offset, n)]
		}
		dst[i] = sum
	}
}

// Intensity returns the mean sample value of the frame.
func Intensity(f Frame) float32 {
	var sum float32
	for _, v := range f {
		sum += v
	}
	return sum / Bars
}

// Texels expands the frame to RGBA texels: the sample goes to the red
// channel, the remaining channels stay zero. dst is reused when it is large
// enough.
func Texels(f Frame, dst []float32) []float32 {
	if cap(dst) < Bars*4 {
		dst = make([]float32, Bars*4)
	}
	dst = dst[:Bars*4]
	for i, v := range f {
		base := i * 4
		dst[base] = v
		dst[base+1] = 0
		dst[base+2] = 0
		dst[base+3] = 0
	}
	return dst
}

// FromSlice copies values into a frame. Missing samples are zero, extra
// samples are dropped.
func FromSlice(values []float32) Frame {
	var f Frame
	copy(f[:], values)
	return f
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
