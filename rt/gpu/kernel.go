package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/particlelife/rt/core"
	"github.com/gekko3d/particlelife/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// WorkgroupSize is the invocation count of one simulation workgroup.
const WorkgroupSize = 256

// Kernel is a replaceable simulation entry point. It must declare
// @binding(0) as var<uniform> SimParams and @binding(1) as
// var<storage, read_write> array<Particle>, and bounds check its index.
type Kernel struct {
	Label         string
	WGSL          string
	EntryPoint    string
	WorkgroupSize uint32
	Host          HostKernel
}

// DefaultKernel is the bounce integrator in compute.wgsl.
func DefaultKernel() Kernel {
	return Kernel{
		Label:         "ParticleIntegrate",
		WGSL:          shaders.ComputeWGSL,
		EntryPoint:    shaders.ComputeEntry,
		WorkgroupSize: WorkgroupSize,
		Host:          integrateHost,
	}
}

func (k Kernel) workgroupSize() uint32 {
	if k.WorkgroupSize == 0 {
		return WorkgroupSize
	}
	return k.WorkgroupSize
}

// WorkgroupCount returns ceil(n / size).
func WorkgroupCount(n int, size uint32) uint32 {
	if n <= 0 || size == 0 {
		return 0
	}
	return (uint32(n) + size - 1) / size
}

func integrateHost(gid uint32, bindings [][]byte) {
	params := core.DecodeSimParams(bindings[0])
	particles := bindings[1]
	base := uint64(gid) * core.ParticleStride
	if base+core.ParticleStride > uint64(len(particles)) {
		return
	}
	rec := particles[base : base+core.ParticleStride]

	for axis := 0; axis < 2; axis++ {
		po := core.PositionOffset + 4*axis
		vo := core.VelocityOffset + 4*axis
		pos := getF32(rec, po)
		vel := getF32(rec, vo)

		pos += vel * params.Speed * params.DeltaTime
		switch {
		case pos < -1:
			pos = -2 - pos
			vel = -vel * params.BoundaryForce
		case pos > 1:
			pos = 2 - pos
			vel = -vel * params.BoundaryForce
		}
		// One fold is not enough once a step travels past the opposite edge.
		pos = mgl32.Clamp(pos, -1, 1)
		putF32(rec, po, pos)
		putF32(rec, vo, vel)
	}
}

func getF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}
