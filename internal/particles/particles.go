package particles

import (
	"math"
	"math/rand"
)

// SpawnDepth is the depth from which particles start their flight.
const SpawnDepth = 2.0

// Particle is the per-instance data uploaded once to the GPU.
type Particle struct {
	Translation [2]float32
	StartZ      float32
	Speed       float32
}

// Kind selects the spatial distribution of a particle field.
type Kind int

const (
	KindDefault Kind = iota
	KindRing
	KindSnow
)

func (k Kind) String() string {
	switch k {
	case KindRing:
		return "ring"
	case KindSnow:
		return "snow"
	default:
		return "default"
	}
}

type spawnFunc func(rng *rand.Rand, aspect float32) (x, y, z float32)

var kindRegistry = map[string]Kind{
	"Circle":      KindRing,
	"SnowyCircle": KindSnow,
}

var spawners = map[Kind]spawnFunc{
	KindDefault: spawnOrigin,
	KindRing:    spawnRing,
	KindSnow:    spawnSnow,
}

// KindFor resolves a variant directory name to its particle distribution.
// Unknown names use KindDefault.
func KindFor(variant string) Kind {
	if kind, ok := kindRegistry[variant]; ok {
		return kind
	}
	return KindDefault
}

// Generate builds a fresh field of count particles. aspect is the screen's
// height divided by its width and only affects KindRing.
func Generate(kind Kind, count int, aspect float32, rng *rand.Rand) []Particle {
	if count <= 0 {
		return nil
	}
	spawn, ok := spawners[kind]
	if !ok {
		spawn = spawnOrigin
	}

	field := make([]Particle, count)
	for i := range field {
		x, y, z := spawn(rng, aspect)
		field[i] = Particle{
			Translation: [2]float32{x, y},
			StartZ:      z,
			Speed:       speed(rng),
		}
	}
	return field
}

const (
	speedScale  = 0.3
	speedBase   = 0.3
	speedSpread = 0.75
)

func speed(rng *rand.Rand) float32 {
	return speedScale * (rng.Float32()*speedSpread + speedBase)
}

func spawnOrigin(_ *rand.Rand, _ float32) (float32, float32, float32) {
	return 0, 0, 0
}

func spawnRing(rng *rand.Rand, aspect float32) (float32, float32, float32) {
	phi := rng.Float64() * 2 * math.Pi
	radius := 0.6 + rng.Float64()*0.2
	sin, cos := math.Sincos(phi)
	x := float32(cos*radius) * aspect
	y := float32(sin * radius)
	z := SpawnDepth * rng.Float32()
	return x, y, z
}

func spawnSnow(rng *rand.Rand, _ float32) (float32, float32, float32) {
	x := rng.Float32()*2 - 1
	y := rng.Float32()*4 - 2
	z := rng.Float32() * 2
	return x, y, z
}
