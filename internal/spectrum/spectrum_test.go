package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothZeroFrame(t *testing.T) {
	var in Frame
	out := Smooth(in)
	for i, v := range out {
		require.Zerof(t, v, "sample %d", i)
	}
}

func TestSmoothInteriorImpulseReproducesKernel(t *testing.T) {
	const center = 100
	var in Frame
	in[center] = 1

	out := Smooth(in)
	kernel := Kernel()
	radius := Radius()

	for offset := -radius; offset <= radius; offset++ {
		assert.InDeltaf(t, kernel[abs(offset)], out[center+offset], 1e-5, "offset %d", offset)
	}
	assert.Zero(t, out[center-radius-1])
	assert.Zero(t, out[center+radius+1])
}

func TestSmoothEdgeImpulseReplicatesFirstSample(t *testing.T) {
	var in Frame
	in[0] = 1

	out := Smooth(in)
	kernel := Kernel()
	radius := Radius()

	// index 0 sees the impulse at offset 0 and at every negative offset
	var want float32
	for offset := -radius; offset <= 0; offset++ {
		want += kernel[abs(offset)]
	}
	assert.InDelta(t, want, out[0], 1e-5)

	// a wrapping convolution would leak the impulse into the last samples
	assert.Zero(t, out[Bars-1])
	assert.NotEqual(t, kernel[0], out[0])

	// index 1 still clamps offsets -2..-7 onto index 0
	var wantOne float32
	for offset := -radius; offset <= -1; offset++ {
		wantOne += kernel[abs(offset)]
	}
	assert.InDelta(t, wantOne, out[1], 1e-5)
}

func TestSmoothPreservesConstantFrame(t *testing.T) {
	var in Frame
	for i := range in {
		in[i] = 0.5
	}
	var kernelSum float32
	for i, k := range Kernel() {
		if i == 0 {
			kernelSum += k
			continue
		}
		kernelSum += 2 * k
	}

	out := Smooth(in)
	for i, v := range out {
		require.InDeltaf(t, 0.5*kernelSum, v, 1e-5, "sample %d", i)
	}
}

func TestKernelValues(t *testing.T) {
	kernel := Kernel()
	require.Len(t, kernel, 7)
	assert.InDelta(t, 0.265961, kernel[0], 1e-6)
	assert.InDelta(t, 0.212965, kernel[1], 1e-6)
	assert.InDelta(t, 8.92202e-05, kernel[6], 1e-9)

	kernel[0] = 42
	assert.NotEqual(t, float32(42), Kernel()[0], "Kernel must return a copy")
}

func TestIntensityIsMean(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = 1
	}
	assert.InDelta(t, 1.0, Intensity(f), 1e-6)

	f = Frame{}
	f[0] = Bars
	assert.InDelta(t, 1.0, Intensity(f), 1e-6)
}

func TestTexelsExpandRedChannel(t *testing.T) {
	var f Frame
	f[0] = 0.25
	f[Bars-1] = 0.75

	texels := Texels(f, nil)
	require.Len(t, texels, Bars*4)
	assert.Equal(t, []float32{0.25, 0, 0, 0}, texels[:4])
	assert.Equal(t, []float32{0.75, 0, 0, 0}, texels[len(texels)-4:])

	reused := Texels(Frame{}, texels)
	assert.Same(t, &texels[0], &reused[0])
	assert.Zero(t, reused[0])
}

func TestFromSlice(t *testing.T) {
	f := FromSlice([]float32{1, 2, 3})
	assert.Equal(t, float32(3), f[2])
	assert.Zero(t, f[3])
}
