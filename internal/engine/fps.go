package engine

import "time"

// FPSMeter averages the frame rate over a measurement window. A measurement
// is published when the window has elapsed or window*target frames were
// counted, whichever comes first.
type FPSMeter struct {
	window     time.Duration
	frameLimit float32
	count      int
	last       time.Time
}

// NewFPSMeter starts measuring at start.
func NewFPSMeter(targetRate, windowSeconds float32, start time.Time) *FPSMeter {
	return &FPSMeter{
		window:     time.Duration(float64(windowSeconds) * float64(time.Second)),
		frameLimit: windowSeconds * targetRate,
		last:       start,
	}
}

// Tick counts one frame finished at now and returns the average frame rate
// when a measurement completes.
func (m *FPSMeter) Tick(now time.Time) (float32, bool) {
	m.count++
	since := now.Sub(m.last)
	if since < m.window && float32(m.count) < m.frameLimit {
		return 0, false
	}
	seconds := since.Seconds()
	if seconds <= 0 {
		return 0, false
	}
	fps := float32(float64(m.count) / seconds)
	m.count = 0
	m.last = now
	return fps, true
}
