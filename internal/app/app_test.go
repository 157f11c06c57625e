package app

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidoenr/ravelizer/internal/params"
	"github.com/guidoenr/ravelizer/internal/spectrum"
	"github.com/guidoenr/ravelizer/internal/testutil"
)

type fakeVisualizer struct {
	active atomic.Bool
	stops  atomic.Int32

	mu     sync.Mutex
	pushes int
	alarm  float32
	frame  spectrum.Frame
}

func newFakeVisualizer() *fakeVisualizer {
	v := &fakeVisualizer{}
	v.active.Store(true)
	return v
}

func (v *fakeVisualizer) IsActive() bool { return v.active.Load() }

func (v *fakeVisualizer) Stop() {
	v.stops.Add(1)
	v.active.Store(false)
}

func (v *fakeVisualizer) SetParameters(alarm float32, frame spectrum.Frame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pushes++
	v.alarm = alarm
	v.frame = frame
}

func (v *fakeVisualizer) snapshot() (int, float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pushes, v.alarm
}

func TestRunStopsWhenVisualizerInactive(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	vis := newFakeVisualizer()
	a := New(Config{Rate: 200, Log: zerolog.Nop()}, vis, Synthetic{})

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		n, _ := vis.snapshot()
		return n >= 3
	}, 2*time.Second, 5*time.Millisecond)
	vis.active.Store(false)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver kept running after the visualization ended")
	}
	_, alarm := vis.snapshot()
	assert.Equal(t, params.NoAlarm, alarm)
	assert.Zero(t, vis.stops.Load())
}

func TestRunStopsVisualizerOnCancel(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	vis := newFakeVisualizer()
	a := New(Config{Rate: 100, Log: zerolog.Nop()}, vis, Synthetic{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver ignored cancellation")
	}
	assert.Equal(t, int32(1), vis.stops.Load())
	assert.False(t, vis.IsActive())
}

func TestAlarmToggle(t *testing.T) {
	vis := newFakeVisualizer()
	a := New(Config{Log: zerolog.Nop()}, vis, Synthetic{})

	a.handle(inputEventToggleAlarm)
	assert.True(t, a.AlarmEnabled())
	a.push(0)
	_, alarm := vis.snapshot()
	assert.Equal(t, DefaultAlarmLevel, alarm)

	a.handle(inputEventToggleAlarm)
	a.push(0)
	_, alarm = vis.snapshot()
	assert.Equal(t, params.NoAlarm, alarm)
}

func TestKeyEvent(t *testing.T) {
	cases := []struct {
		char rune
		key  keyboard.Key
		want inputEvent
		ok   bool
	}{
		{'q', 0, inputEventQuit, true},
		{'Q', 0, inputEventQuit, true},
		{0, keyboard.KeyEsc, inputEventQuit, true},
		{0, keyboard.KeyCtrlC, inputEventQuit, true},
		{'a', 0, inputEventToggleAlarm, true},
		{'x', 0, 0, false},
	}
	for _, tc := range cases {
		got, ok := keyEvent(tc.char, tc.key)
		assert.Equal(t, tc.ok, ok, "char %q key %v", tc.char, tc.key)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestSyntheticFrame(t *testing.T) {
	s := Synthetic{}

	// sin(0) = 0, so the pulse is one half and bar 0 is 0.8 * 0.5 * 0.5
	frame := s.Next(0)
	assert.InDelta(t, 0.2, frame[0], 1e-6)

	elapsed := 1234 * time.Millisecond
	frame = s.Next(elapsed)
	tSec := elapsed.Seconds()
	for _, i := range []int{0, 17, spectrum.Bars - 1} {
		want := 0.8 * 0.5 * (1 + math.Sin(4*tSec)) * 0.5 * (1 + math.Sin(-5*tSec+2*float64(i)))
		assert.InDelta(t, want, frame[i], 1e-5)
		assert.GreaterOrEqual(t, frame[i], float32(0))
		assert.LessOrEqual(t, frame[i], float32(0.8))
	}
}
