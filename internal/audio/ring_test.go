package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingOrdersOldestFirst(t *testing.T) {
	r := NewRing(4)
	r.Write([]float32{1, 2, 3})
	assert.Equal(t, []float32{0, 1, 2, 3}, r.Snapshot(nil))

	r.Write([]float32{4, 5})
	assert.Equal(t, []float32{2, 3, 4, 5}, r.Snapshot(nil))

	r.Write([]float32{6, 7, 8, 9, 10})
	assert.Equal(t, []float32{7, 8, 9, 10}, r.Snapshot(nil))
}

func TestRingSnapshotReusesDst(t *testing.T) {
	r := NewRing(3)
	r.Write([]float32{1, 2, 3})
	dst := make([]float32, 0, 8)
	got := r.Snapshot(dst)
	assert.Equal(t, []float32{1, 2, 3}, got)
	assert.Equal(t, 8, cap(got))
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 3, 0.5, 0.5, -1, 1}
	assert.Equal(t, []float32{2, 0.5, 0}, downmix(nil, stereo, 2))

	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmix(nil, mono, 1))
}
