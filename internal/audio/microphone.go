package audio

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/guidoenr/ravelizer/internal/analyzer"
	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// Microphone is a spectrum source fed by live capture.
type Microphone struct {
	capture  *Capture
	analyzer *analyzer.Analyzer
	samples  []float32
}

// NewMicrophone starts capturing and analyzing cfg's device.
func NewMicrophone(cfg Config, noiseFloor float64, log zerolog.Logger) (*Microphone, error) {
	capture, err := NewCapture(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("device", capture.DeviceName()).
		Float64("sample_rate", capture.SampleRate()).
		Int("channels", capture.channels).
		Msg("audio capture started")

	return &Microphone{
		capture: capture,
		analyzer: analyzer.New(analyzer.Config{
			SampleRate: capture.SampleRate(),
			FFTSize:    capture.ring.Len(),
			NoiseFloor: noiseFloor,
		}),
	}, nil
}

// Next analyzes the most recent samples.
func (m *Microphone) Next(time.Duration) spectrum.Frame {
	m.samples = m.capture.Samples(m.samples)
	return m.analyzer.Analyze(m.samples)
}

// Close stops the capture.
func (m *Microphone) Close() error {
	return m.capture.Close()
}
