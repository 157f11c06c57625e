package particles

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindRing, KindFor("Circle"))
	assert.Equal(t, KindSnow, KindFor("SnowyCircle"))
	assert.Equal(t, KindDefault, KindFor("Plain"))
	assert.Equal(t, KindDefault, KindFor("circle"))
}

func TestGenerateRingStaysOnAnnulus(t *testing.T) {
	const aspect = float32(1080.0 / 1920.0)
	field := Generate(KindRing, 500, aspect, rand.New(rand.NewSource(1)))
	require.Len(t, field, 500)

	for _, p := range field {
		x := float64(p.Translation[0] / aspect)
		y := float64(p.Translation[1])
		r := math.Hypot(x, y)
		assert.GreaterOrEqual(t, r, 0.6-1e-5)
		assert.LessOrEqual(t, r, 0.8+1e-5)
		assert.GreaterOrEqual(t, p.StartZ, float32(0))
		assert.Less(t, p.StartZ, float32(SpawnDepth))
	}
}

func TestGenerateSnowFillsWideRegion(t *testing.T) {
	field := Generate(KindSnow, 500, 0.5, rand.New(rand.NewSource(2)))
	require.Len(t, field, 500)

	var sawAbove, sawBelow bool
	for _, p := range field {
		assert.GreaterOrEqual(t, p.Translation[0], float32(-1))
		assert.Less(t, p.Translation[0], float32(1))
		assert.GreaterOrEqual(t, p.Translation[1], float32(-2))
		assert.Less(t, p.Translation[1], float32(2))
		assert.GreaterOrEqual(t, p.StartZ, float32(0))
		assert.Less(t, p.StartZ, float32(2))
		if p.Translation[1] > 1 {
			sawAbove = true
		}
		if p.Translation[1] < -1 {
			sawBelow = true
		}
	}
	assert.True(t, sawAbove, "expected particles above the viewport")
	assert.True(t, sawBelow, "expected particles below the viewport")
}

func TestGenerateDefaultAtOrigin(t *testing.T) {
	for _, p := range Generate(KindDefault, 50, 1, rand.New(rand.NewSource(3))) {
		assert.Equal(t, [2]float32{0, 0}, p.Translation)
		assert.Zero(t, p.StartZ)
		assert.NotZero(t, p.Speed)
	}
}

func TestGenerateSpeedRange(t *testing.T) {
	lo, hi := float32(speedScale*speedBase), float32(speedScale*(speedSpread+speedBase))
	for _, kind := range []Kind{KindDefault, KindRing, KindSnow} {
		for _, p := range Generate(kind, 200, 1, rand.New(rand.NewSource(4))) {
			assert.GreaterOrEqual(t, p.Speed, lo)
			assert.LessOrEqual(t, p.Speed, hi)
		}
	}
}

func TestGenerateFreshFieldEachCall(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := Generate(KindRing, 20, 1, rng)
	b := Generate(KindRing, 20, 1, rng)
	assert.NotEqual(t, a, b)

	assert.Nil(t, Generate(KindRing, 0, 1, rng))
}
