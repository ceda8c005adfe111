package gpu

import (
	"fmt"
	"math/rand"

	"github.com/gekko3d/particlelife/rt/core"
)

// ParticleStore owns the authoritative particle buffer. The buffer is
// uploaded once at creation and only the simulation kernel writes it after.
type ParticleStore struct {
	buffer Buffer
	count  int
	seed   []core.Particle
}

// NewParticleStore seeds n particles from rng and uploads them.
func NewParticleStore(device Device, n int, rng *rand.Rand) (*ParticleStore, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: particle count %d", ErrAllocation, n)
	}
	seed := core.Seed(n, rng)
	buf, err := device.CreateBuffer(&BufferDescriptor{
		Label:    "ParticleBuffer",
		Size:     uint64(n) * core.ParticleStride,
		Usage:    BufferUsageStorage | BufferUsageCopySrc,
		Contents: core.ParticleBytes(seed),
	})
	if err != nil {
		return nil, fmt.Errorf("particle buffer (%d particles): %w", n, err)
	}
	return &ParticleStore{buffer: buf, count: n, seed: seed}, nil
}

func (s *ParticleStore) Buffer() Buffer { return s.buffer }
func (s *ParticleStore) Count() int     { return s.count }
func (s *ParticleStore) Size() uint64   { return uint64(s.count) * core.ParticleStride }

// Seeded returns the particles the buffer was created with.
func (s *ParticleStore) Seeded() []core.Particle { return s.seed }

func (s *ParticleStore) Release() {
	if s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
}
