package audio

import "sync"

// Ring keeps the most recent mono samples written by the capture callback.
type Ring struct {
	mu    sync.Mutex
	buf   []float32
	index int
}

// NewRing returns a ring holding size samples.
func NewRing(size int) *Ring {
	return &Ring{buf: make([]float32, size)}
}

// Len returns the capacity of the ring.
func (r *Ring) Len() int {
	return len(r.buf)
}

// Write appends samples, overwriting the oldest ones.
func (r *Ring) Write(in []float32) {
	if len(in) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(in) >= len(r.buf) {
		copy(r.buf, in[len(in)-len(r.buf):])
		r.index = 0
		return
	}

	if r.index+len(in) <= len(r.buf) {
		copy(r.buf[r.index:], in)
		r.index += len(in)
		if r.index == len(r.buf) {
			r.index = 0
		}
		return
	}

	remaining := len(r.buf) - r.index
	copy(r.buf[r.index:], in[:remaining])
	copy(r.buf, in[remaining:])
	r.index = len(in) - remaining
}

// Snapshot copies the ring oldest-first into dst, growing it if needed, and
// returns it.
func (r *Ring) Snapshot(dst []float32) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cap(dst) < len(r.buf) {
		dst = make([]float32, len(r.buf))
	}
	dst = dst[:len(r.buf)]
	n := copy(dst, r.buf[r.index:])
	copy(dst[n:], r.buf[:r.index])
	return dst
}

// downmix averages interleaved channels into dst and returns it.
func downmix(dst, in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]
	for i := range dst {
		sum := float32(0)
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		dst[i] = sum / float32(channels)
	}
	return dst
}
