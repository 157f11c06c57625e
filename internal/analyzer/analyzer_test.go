package analyzer

import (
	"math"
	"testing"

	"github.com/guidoenr/ravelizer/internal/spectrum"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:   1,
		1:   1,
		2:   2,
		3:   4,
		5:   8,
		16:  16,
		31:  32,
		257: 512,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestDynamicsWithLowPeakIsSilent(t *testing.T) {
	if got := dynamics(0.5, 0.0); got != 0 {
		t.Fatalf("dynamics for zero peak: got=%f want=0", got)
	}
	if got := dynamics(2, 1); got != 1 {
		t.Fatalf("dynamics above peak: got=%f want=1", got)
	}
}

func TestGate(t *testing.T) {
	if gate(0.1, 0.2) != 0 {
		t.Fatalf("expected values under the floor to be gated")
	}
	if got := gate(0.6, 0.2); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("gate rescale: got=%f want=0.5", got)
	}
	if gate(0.3, 0) != 0.3 {
		t.Fatalf("expected no floor to pass values through")
	}
}

func TestBandEdgesIncreasing(t *testing.T) {
	for _, size := range []int{1024, 2048, 4096} {
		edges := bandEdges(size, 44_100, 30, 16_000)
		if len(edges) != spectrum.Bars+1 {
			t.Fatalf("size %d: %d edges", size, len(edges))
		}
		if edges[0] < 1 || edges[len(edges)-1] > size/2 {
			t.Fatalf("size %d: edges out of range [%d, %d]", size, edges[0], edges[len(edges)-1])
		}
		for i := 1; i < len(edges); i++ {
			if edges[i] <= edges[i-1] {
				t.Fatalf("size %d: edge %d=%d not above %d", size, i, edges[i], edges[i-1])
			}
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	a := New(Config{SampleRate: 44_100})
	frame := a.Analyze(make([]float32, 2048))
	for i, v := range frame {
		if v != 0 {
			t.Fatalf("bar %d = %f for silence", i, v)
		}
	}
}

func TestAnalyzeSineLandsInItsBand(t *testing.T) {
	const rate = 44_100.0
	const hz = 1000.0
	a := New(Config{SampleRate: rate})

	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(0.8 * math.Sin(2*math.Pi*hz*float64(i)/rate))
	}
	frame := a.Analyze(samples)

	loudest := 0
	for i, v := range frame {
		if v < 0 || v > 1 {
			t.Fatalf("bar %d = %f outside [0, 1]", i, v)
		}
		if v > frame[loudest] {
			loudest = i
		}
	}
	edges := bandEdges(2048, rate, 30, 16_000)
	bin := int(math.Round(hz / (rate / 2048)))
	if bin < edges[loudest]-1 || bin > edges[loudest+1] {
		t.Fatalf("loudest bar %d covers bins [%d, %d), sine is in bin %d", loudest, edges[loudest], edges[loudest+1], bin)
	}
}

func TestAnalyzeDecaysWithoutInput(t *testing.T) {
	a := New(Config{SampleRate: 44_100, Decay: 0.5})
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.3))
	}
	first := a.Analyze(samples)
	next := a.Analyze(nil)
	for i := range first {
		if math.Abs(float64(next[i]-first[i]*0.5)) > 1e-6 {
			t.Fatalf("bar %d: got %f want %f", i, next[i], first[i]*0.5)
		}
	}
}
