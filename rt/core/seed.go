package core

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Seeding ranges for a fresh field. Coordinates are normalized, so the
// field is independent of the canvas size.
var (
	PositionRange = [2]float32{-1.0, 1.0}
	VelocityRange = [2]float32{-0.1, 0.1}
	ColorRange    = [2]float32{0.5, 1.0}
)

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func sample(rng *rand.Rand, r [2]float32) float32 {
	return lerp(r[0], r[1], rng.Float32())
}

// Seed fills n particles with uniformly sampled positions, small velocities
// and bright opaque colors. A nil rng draws from the global source.
func Seed(n int, rng *rand.Rand) []Particle {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	particles := make([]Particle, n)
	for i := range particles {
		particles[i] = Particle{
			Position: mgl32.Vec2{sample(rng, PositionRange), sample(rng, PositionRange)},
			Velocity: mgl32.Vec2{sample(rng, VelocityRange), sample(rng, VelocityRange)},
			Color: mgl32.Vec4{
				sample(rng, ColorRange),
				sample(rng, ColorRange),
				sample(rng, ColorRange),
				1.0,
			},
		}
	}
	return particles
}
