package core

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleLayoutMatchesWGSL(t *testing.T) {
	var p Particle
	assert.Equal(t, uintptr(ParticleStride), unsafe.Sizeof(p))
	assert.Equal(t, uintptr(PositionOffset), unsafe.Offsetof(p.Position))
	assert.Equal(t, uintptr(VelocityOffset), unsafe.Offsetof(p.Velocity))
	assert.Equal(t, uintptr(ColorOffset), unsafe.Offsetof(p.Color))

	var v ParticleVertex
	assert.Equal(t, uintptr(VertexStride), unsafe.Sizeof(v))
	assert.Equal(t, uintptr(PositionSize), unsafe.Offsetof(v.Color))

	assert.Equal(t, uintptr(SimParamsSize), unsafe.Sizeof(SimParams{}))
}

func TestSimParamsBytes(t *testing.T) {
	p := SimParams{DeltaTime: 1.0 / 60.0, Speed: 2, BoundaryForce: 0.5}
	b := p.Bytes()
	require.Len(t, b, SimParamsSize)
	assert.Equal(t, []byte{0, 0, 0, 0}, b[12:], "padding must be zero")
	assert.Equal(t, p, DecodeSimParams(b))
	assert.Equal(t, SimParams{}, DecodeSimParams(b[:8]))
}

func TestDecodeParticles(t *testing.T) {
	in := []Particle{
		{Position: mgl32.Vec2{1, 2}, Velocity: mgl32.Vec2{3, 4}, Color: mgl32.Vec4{0.1, 0.2, 0.3, 1.0}},
		{Position: mgl32.Vec2{-1, -2}, Velocity: mgl32.Vec2{0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}},
	}
	raw := append([]byte(nil), ParticleBytes(in)...)
	raw = append(raw, 0xff, 0xff) // partial record is dropped

	out := DecodeParticles(raw)
	assert.Equal(t, in, out)
	assert.Nil(t, ParticleBytes(nil))
}

func TestSeedRanges(t *testing.T) {
	particles := Seed(500, rand.New(rand.NewSource(7)))
	require.Len(t, particles, 500)

	for i, p := range particles {
		for c := 0; c < 2; c++ {
			assert.GreaterOrEqual(t, p.Position[c], PositionRange[0], "particle %d", i)
			assert.Less(t, p.Position[c], PositionRange[1], "particle %d", i)
			assert.GreaterOrEqual(t, p.Velocity[c], VelocityRange[0], "particle %d", i)
			assert.Less(t, p.Velocity[c], VelocityRange[1], "particle %d", i)
		}
		for c := 0; c < 3; c++ {
			assert.GreaterOrEqual(t, p.Color[c], ColorRange[0], "particle %d", i)
			assert.Less(t, p.Color[c], ColorRange[1], "particle %d", i)
		}
		assert.Equal(t, float32(1), p.Color[3])
	}
}

func TestSeedDeterministic(t *testing.T) {
	a := Seed(16, rand.New(rand.NewSource(42)))
	b := Seed(16, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
	assert.Nil(t, Seed(0, nil))
	assert.Len(t, Seed(3, nil), 3)
}

func TestStreamsStrides(t *testing.T) {
	interleaved := LayoutInterleaved.Streams()
	require.Len(t, interleaved, 1)
	assert.Equal(t, uint64(24), interleaved[0].Stride)

	split := LayoutSplit.Streams()
	require.Len(t, split, 2)
	assert.Equal(t, uint64(8), split[0].Stride)
	assert.Equal(t, uint64(16), split[1].Stride)

	for _, l := range []Layout{LayoutInterleaved, LayoutSplit} {
		for _, s := range l.Streams() {
			var covered uint64
			for _, r := range s.Regions {
				covered += r.Size
				assert.Zero(t, r.SrcOffset%4)
				assert.Zero(t, r.DstOffset%4)
			}
			assert.Equal(t, s.Stride, covered, "%s/%s regions must fill the stride", l, s.Name)
		}
	}
}

func TestStreamProject(t *testing.T) {
	particles := []Particle{
		{Position: mgl32.Vec2{1, 2}, Velocity: mgl32.Vec2{3, 4}, Color: mgl32.Vec4{0.1, 0.2, 0.3, 1.0}},
		{Position: mgl32.Vec2{5, 6}, Velocity: mgl32.Vec2{7, 8}, Color: mgl32.Vec4{0.4, 0.5, 0.6, 0.7}},
	}

	verts := DecodeVertices(LayoutInterleaved.Streams()[0].Project(particles))
	assert.Equal(t, []ParticleVertex{particles[0].Vertex(), particles[1].Vertex()}, verts)

	split := LayoutSplit.Streams()
	assert.Equal(t, []mgl32.Vec2{{1, 2}, {5, 6}}, DecodeVec2s(split[0].Project(particles)))
	assert.Equal(t, []mgl32.Vec4{{0.1, 0.2, 0.3, 1.0}, {0.4, 0.5, 0.6, 0.7}}, DecodeVec4s(split[1].Project(particles)))
}

func TestParseKinds(t *testing.T) {
	l, err := ParseLayout("split")
	require.NoError(t, err)
	assert.Equal(t, LayoutSplit, l)
	_, err = ParseLayout("planar")
	assert.Error(t, err)

	k, err := ParsePresentationKind("instanced-quad")
	require.NoError(t, err)
	assert.Equal(t, PresentInstancedQuads, k)
	assert.Equal(t, LayoutSplit, k.Layout())
	assert.Equal(t, LayoutInterleaved, PresentPoints.Layout())
	assert.Equal(t, "point-list", PresentPoints.String())
	_, err = ParsePresentationKind("lines")
	assert.Error(t, err)
}
