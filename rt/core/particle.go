package core

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Particle matches the WGSL layout in compute.wgsl
// struct Particle { position: vec2<f32>, velocity: vec2<f32>, color: vec4<f32> }
type Particle struct {
	Position mgl32.Vec2
	Velocity mgl32.Vec2
	Color    mgl32.Vec4
}

// ParticleVertex is the interleaved presentation record read by points.wgsl.
type ParticleVertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec4
}

// SimParams matches the uniform block bound at binding 0 of the simulation kernel.
type SimParams struct {
	DeltaTime     float32
	Speed         float32
	BoundaryForce float32
	_             float32
}

// Byte layout of one authoritative record.
const (
	ParticleStride = 32

	PositionOffset = 0
	PositionSize   = 8
	VelocityOffset = 8
	VelocitySize   = 8
	ColorOffset    = 16
	ColorSize      = 16

	VertexStride   = PositionSize + ColorSize // interleaved {position, color}
	PositionStride = PositionSize             // split position stream
	ColorStride    = ColorSize                // split color stream

	SimParamsSize = 16
)

// DefaultCount is the particle count used when a session does not specify one.
const DefaultCount = 1000

// Bytes returns the uniform block encoding of p.
func (p SimParams) Bytes() []byte {
	buf := make([]byte, SimParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.DeltaTime))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Speed))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.BoundaryForce))
	binary.LittleEndian.PutUint32(buf[12:], 0)
	return buf
}

// DecodeSimParams reads a uniform block written by SimParams.Bytes.
func DecodeSimParams(b []byte) SimParams {
	if len(b) < SimParamsSize {
		return SimParams{}
	}
	return SimParams{
		DeltaTime:     math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Speed:         math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		BoundaryForce: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// ParticleBytes views particles as raw bytes without copying.
func ParticleBytes(particles []Particle) []byte {
	if len(particles) == 0 {
		return nil
	}
	size := len(particles) * int(unsafe.Sizeof(Particle{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&particles[0])), size)
}

// DecodeParticles copies raw authoritative records into a new slice.
// Trailing bytes that do not form a full record are ignored.
func DecodeParticles(b []byte) []Particle {
	n := len(b) / ParticleStride
	out := make([]Particle, n)
	if n > 0 {
		copy(ParticleBytes(out), b[:n*ParticleStride])
	}
	return out
}

// VertexBytes views interleaved vertices as raw bytes without copying.
func VertexBytes(vertices []ParticleVertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(ParticleVertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

// DecodeVertices copies raw interleaved records into a new slice.
func DecodeVertices(b []byte) []ParticleVertex {
	n := len(b) / VertexStride
	out := make([]ParticleVertex, n)
	if n > 0 {
		copy(VertexBytes(out), b[:n*VertexStride])
	}
	return out
}

// DecodeVec2s reads a tightly packed vec2<f32> stream.
func DecodeVec2s(b []byte) []mgl32.Vec2 {
	n := len(b) / 8
	out := make([]mgl32.Vec2, n)
	for i := range out {
		out[i] = mgl32.Vec2{readF32(b, i*8), readF32(b, i*8+4)}
	}
	return out
}

// DecodeVec4s reads a tightly packed vec4<f32> stream.
func DecodeVec4s(b []byte) []mgl32.Vec4 {
	n := len(b) / 16
	out := make([]mgl32.Vec4, n)
	for i := range out {
		o := i * 16
		out[i] = mgl32.Vec4{readF32(b, o), readF32(b, o+4), readF32(b, o+8), readF32(b, o+12)}
	}
	return out
}

func readF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// Vertex projects a particle onto the interleaved presentation record.
func (p Particle) Vertex() ParticleVertex {
	return ParticleVertex{Position: p.Position, Color: p.Color}
}
