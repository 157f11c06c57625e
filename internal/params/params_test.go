package params

import (
	"sync"
	"testing"

	"github.com/guidoenr/ravelizer/internal/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsHaveNoAlarm(t *testing.T) {
	p := NewState().Snapshot()
	assert.Equal(t, NoAlarm, p.AlarmFactor)
	assert.False(t, p.Alarmed())
	assert.Equal(t, spectrum.Frame{}, p.Frame)
}

func TestSetThenSnapshot(t *testing.T) {
	s := NewState()
	var frame spectrum.Frame
	for i := range frame {
		frame[i] = float32(i) / spectrum.Bars
	}

	s.Set(0.7, frame)
	got := s.Snapshot()
	assert.Equal(t, float32(0.7), got.AlarmFactor)
	assert.Equal(t, frame, got.Frame)
	assert.True(t, got.Alarmed())

	// the snapshot is a copy
	got.Frame[0] = 99
	assert.Zero(t, s.Snapshot().Frame[0])

	s.Store(Defaults())
	assert.Equal(t, Defaults(), s.Snapshot())
}

func TestConcurrentWritesAreNeverTorn(t *testing.T) {
	s := NewState()
	const writers = 4
	const rounds = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var frame spectrum.Frame
			for i := range frame {
				frame[i] = float32(id)
			}
			for r := 0; r < rounds; r++ {
				s.Set(float32(id), frame)
			}
		}(w + 1)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		p := s.Snapshot()
		first := p.Frame[0]
		for i, v := range p.Frame {
			require.Equalf(t, first, v, "frame mixes writes at sample %d", i)
		}
		if first != 0 {
			require.Equal(t, first, p.AlarmFactor)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}
