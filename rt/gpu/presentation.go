package gpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gekko3d/particlelife/rt/core"
	"github.com/gekko3d/particlelife/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// Background is the clear color of every frame.
var Background = Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0}

// DefaultQuadSize is the half extent of an instanced quad in clip units.
const DefaultQuadSize = 0.01

// QuadIndices are the two triangles of the unit quad.
var QuadIndices = [6]uint16{0, 1, 2, 2, 1, 3}

// Presenter records the draws of one presentation strategy into a render
// pass that has already been cleared.
type Presenter interface {
	Kind() core.PresentationKind
	Layout() core.Layout
	Encode(pass RenderPass) error
	Release()
}

// NewPresenter builds the presenter for kind over d.
func NewPresenter(device Device, kind core.PresentationKind, d *Derivation, format TextureFormat, quadSize float32) (Presenter, error) {
	switch kind {
	case core.PresentPoints:
		p, err := NewPointListPresenter(device, d, format)
		if err != nil {
			return nil, err
		}
		return p, nil
	case core.PresentInstancedQuads:
		p, err := NewInstancedQuadPresenter(device, d, format, quadSize)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown presentation strategy %v", ErrValidation, kind)
}

func checkLayout(kind core.PresentationKind, d *Derivation) error {
	if d.Layout() != kind.Layout() {
		return fmt.Errorf("%w: %s needs %s buffers, got %s", ErrLayoutMismatch, kind, kind.Layout(), d.Layout())
	}
	return nil
}

// PointListPresenter draws one point per particle from the interleaved buffer.
type PointListPresenter struct {
	pipeline RenderPipeline
	vertices Buffer
	count    uint32
}

func NewPointListPresenter(device Device, d *Derivation, format TextureFormat) (*PointListPresenter, error) {
	if err := checkLayout(core.PresentPoints, d); err != nil {
		return nil, err
	}
	pipeline, err := device.CreateRenderPipeline(&RenderPipelineDescriptor{
		Label:         "ParticlePointPipeline",
		WGSL:          shaders.PointsWGSL,
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		Buffers: []VertexBufferLayout{{
			ArrayStride: uint64(unsafe.Sizeof(core.ParticleVertex{})),
			StepMode:    StepModeVertex,
			Attributes: []VertexAttribute{
				{Format: VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: VertexFormatFloat32x4, Offset: core.PositionSize, ShaderLocation: 1},
			},
		}},
		Topology:   TopologyPointList,
		Format:     format,
		AlphaBlend: true,
		Host:       passThroughVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("point pipeline: %w", err)
	}
	return &PointListPresenter{pipeline: pipeline, vertices: d.Buffer(0), count: uint32(d.Count())}, nil
}

func (p *PointListPresenter) Kind() core.PresentationKind { return core.PresentPoints }
func (p *PointListPresenter) Layout() core.Layout         { return core.LayoutInterleaved }

func (p *PointListPresenter) Encode(pass RenderPass) error {
	pass.SetPipeline(p.pipeline)
	pass.SetVertexBuffer(0, p.vertices)
	pass.Draw(p.count, 1)
	return nil
}

func (p *PointListPresenter) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

// InstancedQuadPresenter draws a small quad per particle. Corners are per
// vertex. Position and color are per instance from the split buffers.
type InstancedQuadPresenter struct {
	pipeline  RenderPipeline
	corners   Buffer
	indices   Buffer
	positions Buffer
	colors    Buffer
	count     uint32
	size      float32
}

// QuadCorners returns the four corners of a quad of half extent size, in
// the winding QuadIndices expects.
func QuadCorners(size float32) [4]mgl32.Vec2 {
	return [4]mgl32.Vec2{{-size, -size}, {size, -size}, {-size, size}, {size, size}}
}

func NewInstancedQuadPresenter(device Device, d *Derivation, format TextureFormat, size float32) (*InstancedQuadPresenter, error) {
	if err := checkLayout(core.PresentInstancedQuads, d); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQuadSize
	}
	p := &InstancedQuadPresenter{positions: d.Buffer(0), colors: d.Buffer(1), count: uint32(d.Count()), size: size}

	corners := QuadCorners(size)
	var err error
	p.corners, err = device.CreateBuffer(&BufferDescriptor{
		Label:    "QuadCorners",
		Usage:    BufferUsageVertex,
		Contents: unsafe.Slice((*byte)(unsafe.Pointer(&corners[0])), int(unsafe.Sizeof(corners))),
	})
	if err != nil {
		return nil, fmt.Errorf("quad corner buffer: %w", err)
	}

	idx := make([]byte, 2*len(QuadIndices))
	for i, v := range QuadIndices {
		binary.LittleEndian.PutUint16(idx[2*i:], v)
	}
	p.indices, err = device.CreateBuffer(&BufferDescriptor{
		Label:    "QuadIndices",
		Usage:    BufferUsageIndex,
		Contents: idx,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("quad index buffer: %w", err)
	}

	p.pipeline, err = device.CreateRenderPipeline(&RenderPipelineDescriptor{
		Label:         "ParticleQuadPipeline",
		WGSL:          shaders.QuadsWGSL,
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		Buffers: []VertexBufferLayout{
			{
				ArrayStride: 8,
				StepMode:    StepModeVertex,
				Attributes:  []VertexAttribute{{Format: VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}},
			},
			{
				ArrayStride: core.PositionStride,
				StepMode:    StepModeInstance,
				Attributes:  []VertexAttribute{{Format: VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1}},
			},
			{
				ArrayStride: core.ColorStride,
				StepMode:    StepModeInstance,
				Attributes:  []VertexAttribute{{Format: VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2}},
			},
		},
		Topology:   TopologyTriangleList,
		Format:     format,
		AlphaBlend: true,
		Host:       quadVertex,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("quad pipeline: %w", err)
	}
	return p, nil
}

func (p *InstancedQuadPresenter) Kind() core.PresentationKind { return core.PresentInstancedQuads }
func (p *InstancedQuadPresenter) Layout() core.Layout         { return core.LayoutSplit }
func (p *InstancedQuadPresenter) Size() float32               { return p.size }

func (p *InstancedQuadPresenter) Encode(pass RenderPass) error {
	pass.SetPipeline(p.pipeline)
	pass.SetVertexBuffer(0, p.corners)
	pass.SetVertexBuffer(1, p.positions)
	pass.SetVertexBuffer(2, p.colors)
	pass.SetIndexBuffer(p.indices, IndexFormatUint16)
	pass.DrawIndexed(uint32(len(QuadIndices)), p.count)
	return nil
}

// Release frees the quad geometry and pipeline. The derived buffers belong
// to the Derivation.
func (p *InstancedQuadPresenter) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.indices != nil {
		p.indices.Release()
		p.indices = nil
	}
	if p.corners != nil {
		p.corners.Release()
		p.corners = nil
	}
}

func passThroughVertex(in []mgl32.Vec4) (mgl32.Vec4, mgl32.Vec4) {
	return mgl32.Vec4{in[0][0], in[0][1], 0, 1}, in[1]
}

func quadVertex(in []mgl32.Vec4) (mgl32.Vec4, mgl32.Vec4) {
	return mgl32.Vec4{in[1][0] + in[0][0], in[1][1] + in[0][1], 0, 1}, in[2]
}
