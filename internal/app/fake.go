package app

import (
	"math"
	"time"

	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// Synthetic is a spectrum source producing a travelling wave whose overall
// level pulses over time. It needs no audio hardware.
type Synthetic struct {
	// Gain scales every bar. Zero means 0.8.
	Gain float32
}

// Next returns the frame for elapsed time since the driver started.
func (s Synthetic) Next(elapsed time.Duration) spectrum.Frame {
	gain := s.Gain
	if gain == 0 {
		gain = 0.8
	}
	t := elapsed.Seconds()
	pulse := 0.5 * (1 + math.Sin(4*t))

	var frame spectrum.Frame
	for i := range frame {
		wave := 0.5 * (1 + math.Sin(-5*t+2*float64(i)))
		frame[i] = gain * float32(pulse*wave)
	}
	return frame
}
