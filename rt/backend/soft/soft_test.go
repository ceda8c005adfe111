package soft

import (
	"encoding/binary"
	"image/color"
	"math"
	"testing"

	"github.com/gekko3d/particlelife/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffer(t *testing.T, d *Device, usage gpu.BufferUsage, contents []byte) *Buffer {
	t.Helper()
	b, err := d.CreateBuffer(&gpu.BufferDescriptor{Label: "test", Usage: usage, Contents: contents})
	require.NoError(t, err)
	return b.(*Buffer)
}

func TestCreateBufferLimits(t *testing.T) {
	d := NewDevice(Config{MaxBufferSize: 64})

	_, err := d.CreateBuffer(&gpu.BufferDescriptor{Size: 128, Usage: gpu.BufferUsageStorage})
	assert.ErrorIs(t, err, gpu.ErrAllocation)

	_, err = d.CreateBuffer(&gpu.BufferDescriptor{Size: 4, Contents: make([]byte, 8)})
	assert.ErrorIs(t, err, gpu.ErrValidation)

	b := newBuffer(t, d, gpu.BufferUsageVertex, []byte{1, 2, 3, 4})
	assert.Equal(t, uint64(4), b.Size())
	assert.Equal(t, 1, d.LiveBuffers())
	b.Release()
	b.Release()
	assert.Equal(t, 0, d.LiveBuffers())
}

func TestCopyBufferToBufferValidation(t *testing.T) {
	d := NewDevice(Config{})
	src := newBuffer(t, d, gpu.BufferUsageCopySrc, make([]byte, 32))
	dst := newBuffer(t, d, gpu.BufferUsageCopyDst, make([]byte, 16))
	noSrc := newBuffer(t, d, gpu.BufferUsageStorage, make([]byte, 32))
	both := newBuffer(t, d, gpu.BufferUsageCopySrc|gpu.BufferUsageCopyDst, make([]byte, 32))

	tests := []struct {
		name      string
		src, dst  *Buffer
		srcOffset uint64
		dstOffset uint64
		size      uint64
		wantErr   bool
	}{
		{name: "valid", src: src, dst: dst, srcOffset: 16, size: 16},
		{name: "missing CopySrc", src: noSrc, dst: dst, size: 8, wantErr: true},
		{name: "missing CopyDst", src: src, dst: src, size: 8, wantErr: true},
		{name: "unaligned offset", src: src, dst: dst, srcOffset: 2, size: 8, wantErr: true},
		{name: "unaligned size", src: src, dst: dst, size: 6, wantErr: true},
		{name: "source out of bounds", src: src, dst: dst, srcOffset: 24, size: 16, wantErr: true},
		{name: "destination out of bounds", src: src, dst: dst, dstOffset: 8, size: 16, wantErr: true},
		{name: "overlap", src: both, dst: both, srcOffset: 0, dstOffset: 4, size: 8, wantErr: true},
		{name: "same buffer disjoint", src: both, dst: both, srcOffset: 0, dstOffset: 16, size: 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := d.CreateCommandEncoder(tt.name)
			require.NoError(t, err)
			err = enc.CopyBufferToBuffer(tt.src, tt.srcOffset, tt.dst, tt.dstOffset, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, gpu.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCopyExecutesAtSubmit(t *testing.T) {
	d := NewDevice(Config{})
	src := newBuffer(t, d, gpu.BufferUsageCopySrc, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	dst := newBuffer(t, d, gpu.BufferUsageCopyDst, make([]byte, 4))

	enc, _ := d.CreateCommandEncoder("copy")
	require.NoError(t, enc.CopyBufferToBuffer(src, 4, dst, 0, 4))
	assert.Equal(t, []byte{0, 0, 0, 0}, dst.Bytes(), "nothing runs before submit")

	cb, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, d.Submit(cb))
	assert.Equal(t, []byte{5, 6, 7, 8}, dst.Bytes())

	assert.ErrorIs(t, d.Submit(cb), gpu.ErrValidation)
	assert.ErrorIs(t, enc.CopyBufferToBuffer(src, 0, dst, 0, 4), gpu.ErrValidation)

	subs := d.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, []CommandKind{CommandCopy}, subs[0].Kinds())
}

func TestWriteBuffer(t *testing.T) {
	d := NewDevice(Config{})
	ro := newBuffer(t, d, gpu.BufferUsageUniform, make([]byte, 16))
	rw := newBuffer(t, d, gpu.BufferUsageUniform|gpu.BufferUsageCopyDst, make([]byte, 16))

	assert.ErrorIs(t, d.WriteBuffer(ro, 0, make([]byte, 4)), gpu.ErrValidation)
	assert.ErrorIs(t, d.WriteBuffer(rw, 2, make([]byte, 4)), gpu.ErrValidation)
	assert.ErrorIs(t, d.WriteBuffer(rw, 12, make([]byte, 8)), gpu.ErrValidation)
	require.NoError(t, d.WriteBuffer(rw, 4, []byte{9, 9, 9, 9}))
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 9}, rw.Bytes()[:8])
}

func TestDispatchRunsEveryInvocation(t *testing.T) {
	d := NewDevice(Config{})
	counter := newBuffer(t, d, gpu.BufferUsageStorage, make([]byte, 4))
	uniform := newBuffer(t, d, gpu.BufferUsageUniform, make([]byte, 16))

	p, err := d.CreateComputePipeline(&gpu.ComputePipelineDescriptor{
		Label:         "count",
		WorkgroupSize: 64,
		Bindings:      []gpu.BindingType{gpu.BindingUniform, gpu.BindingStorage},
		Host: func(gid uint32, b [][]byte) {
			binary.LittleEndian.PutUint32(b[1], binary.LittleEndian.Uint32(b[1])+1)
		},
	})
	require.NoError(t, err)

	_, err = d.CreateBindGroup(&gpu.BindGroupDescriptor{
		Pipeline: p,
		Entries:  []gpu.BindGroupEntry{{Binding: 0, Buffer: counter}, {Binding: 1, Buffer: uniform}},
	})
	assert.ErrorIs(t, err, gpu.ErrValidation, "usages swapped")

	bg, err := d.CreateBindGroup(&gpu.BindGroupDescriptor{
		Pipeline: p,
		Entries:  []gpu.BindGroupEntry{{Binding: 0, Buffer: uniform}, {Binding: 1, Buffer: counter}},
	})
	require.NoError(t, err)

	enc, _ := d.CreateCommandEncoder("dispatch")
	require.NoError(t, enc.Dispatch(p, bg, 3, 1, 1))
	cb, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, d.Submit(cb))

	assert.Equal(t, uint32(3*64), binary.LittleEndian.Uint32(counter.Bytes()))
	assert.Equal(t, [3]uint32{3, 1, 1}, d.Submissions()[0].Commands[0].Workgroups)

	_, err = d.CreateComputePipeline(&gpu.ComputePipelineDescriptor{Label: "no-host", WorkgroupSize: 64})
	assert.ErrorIs(t, err, gpu.ErrValidation)
}

func f32s(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func pointPipeline(t *testing.T, d *Device, format gpu.TextureFormat) gpu.RenderPipeline {
	t.Helper()
	p, err := d.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label: "points",
		Buffers: []gpu.VertexBufferLayout{{
			ArrayStride: 24,
			Attributes: []gpu.VertexAttribute{
				{Format: gpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gpu.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
			},
		}},
		Topology:   gpu.TopologyPointList,
		Format:     format,
		AlphaBlend: true,
		Host: func(in []mgl32.Vec4) (mgl32.Vec4, mgl32.Vec4) {
			return mgl32.Vec4{in[0][0], in[0][1], 0, 1}, in[1]
		},
	})
	require.NoError(t, err)
	return p
}

func TestRenderPassClearsAndPlots(t *testing.T) {
	d := NewDevice(Config{})
	tex := NewTexture(8, 8, gpu.TextureFormatRGBA8Unorm)
	verts := newBuffer(t, d, gpu.BufferUsageVertex, f32s(
		-0.875, 0.875, 1, 0, 0, 1, // top-left pixel
		0.875, -0.875, 0, 0, 1, 0.5, // bottom-right pixel, half transparent
	))

	enc, _ := d.CreateCommandEncoder("render")
	pass, err := enc.BeginRenderPass(&gpu.RenderPassDescriptor{Target: tex, Clear: gpu.Color{R: 0, G: 1, B: 0, A: 1}})
	require.NoError(t, err)
	assert.ErrorIs(t, enc.CopyBufferToBuffer(verts, 0, verts, 0, 4), gpu.ErrValidation, "encoder is locked while a pass is open")

	pass.SetPipeline(pointPipeline(t, d, gpu.TextureFormatRGBA8Unorm))
	pass.SetVertexBuffer(0, verts)
	pass.Draw(2, 1)
	require.NoError(t, pass.End())
	cb, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, d.Submit(cb))

	img := tex.Image()
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(4, 4))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 0))

	blended := img.RGBAAt(7, 7)
	assert.InDelta(t, 128, int(blended.B), 2)
	assert.InDelta(t, 127, int(blended.G), 2)
	assert.Equal(t, uint8(255), blended.A)
}

func TestRenderPassDeferredErrors(t *testing.T) {
	d := NewDevice(Config{})
	tex := NewTexture(4, 4, gpu.TextureFormatRGBA8Unorm)
	storage := newBuffer(t, d, gpu.BufferUsageStorage, make([]byte, 24))

	enc, _ := d.CreateCommandEncoder("render")
	pass, err := enc.BeginRenderPass(&gpu.RenderPassDescriptor{Target: tex})
	require.NoError(t, err)
	pass.SetPipeline(pointPipeline(t, d, gpu.TextureFormatRGBA8Unorm))
	pass.SetVertexBuffer(0, storage)
	pass.Draw(1, 1)
	assert.ErrorIs(t, pass.End(), gpu.ErrValidation)

	pass, err = enc.BeginRenderPass(&gpu.RenderPassDescriptor{Target: tex})
	require.NoError(t, err)
	pass.SetPipeline(pointPipeline(t, d, gpu.TextureFormatBGRA8Unorm))
	assert.ErrorIs(t, pass.End(), gpu.ErrValidation, "format mismatch")
}

func TestIndexedTriangles(t *testing.T) {
	d := NewDevice(Config{})
	tex := NewTexture(16, 16, gpu.TextureFormatRGBA8Unorm)
	corners := newBuffer(t, d, gpu.BufferUsageVertex, f32s(-1, -1, 1, -1, -1, 1, 1, 1))
	idx := make([]byte, 12)
	for i, v := range []uint16{0, 1, 2, 2, 1, 3} {
		binary.LittleEndian.PutUint16(idx[2*i:], v)
	}
	indices := newBuffer(t, d, gpu.BufferUsageIndex, idx)

	p, err := d.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label: "fullscreen",
		Buffers: []gpu.VertexBufferLayout{{
			ArrayStride: 8,
			Attributes:  []gpu.VertexAttribute{{Format: gpu.VertexFormatFloat32x2}},
		}},
		Topology: gpu.TopologyTriangleList,
		Format:   gpu.TextureFormatRGBA8Unorm,
		Host: func(in []mgl32.Vec4) (mgl32.Vec4, mgl32.Vec4) {
			return mgl32.Vec4{in[0][0], in[0][1], 0, 1}, mgl32.Vec4{0, 0, 1, 1}
		},
	})
	require.NoError(t, err)

	enc, _ := d.CreateCommandEncoder("quad")
	pass, err := enc.BeginRenderPass(&gpu.RenderPassDescriptor{Target: tex, Clear: gpu.Color{A: 1}})
	require.NoError(t, err)
	pass.SetPipeline(p)
	pass.SetVertexBuffer(0, corners)
	pass.SetIndexBuffer(indices, gpu.IndexFormatUint16)
	pass.DrawIndexed(6, 1)
	require.NoError(t, pass.End())
	cb, _ := enc.Finish()
	require.NoError(t, d.Submit(cb))

	for _, pt := range [][2]int{{12, 3}, {3, 12}, {1, 14}, {14, 1}} {
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, tex.Image().RGBAAt(pt[0], pt[1]), "pixel %v", pt)
	}
}

func TestTriangleKeepsUncoveredPixels(t *testing.T) {
	for _, blend := range []bool{false, true} {
		d := NewDevice(Config{})
		tex := NewTexture(16, 16, gpu.TextureFormatRGBA8Unorm)
		corner := newBuffer(t, d, gpu.BufferUsageVertex, f32s(0.5, 0.5, 1, 0.5, 1, 1))

		p, err := d.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
			Label: "corner",
			Buffers: []gpu.VertexBufferLayout{{
				ArrayStride: 8,
				Attributes:  []gpu.VertexAttribute{{Format: gpu.VertexFormatFloat32x2}},
			}},
			Topology:   gpu.TopologyTriangleList,
			Format:     gpu.TextureFormatRGBA8Unorm,
			AlphaBlend: blend,
			Host: func(in []mgl32.Vec4) (mgl32.Vec4, mgl32.Vec4) {
				return mgl32.Vec4{in[0][0], in[0][1], 0, 1}, mgl32.Vec4{0, 0, 1, 1}
			},
		})
		require.NoError(t, err)

		enc, _ := d.CreateCommandEncoder("corner")
		pass, err := enc.BeginRenderPass(&gpu.RenderPassDescriptor{Target: tex, Clear: gpu.Color{R: 1, A: 1}})
		require.NoError(t, err)
		pass.SetPipeline(p)
		pass.SetVertexBuffer(0, corner)
		pass.Draw(3, 1)
		require.NoError(t, pass.End())
		cb, _ := enc.Finish()
		require.NoError(t, d.Submit(cb))

		red := color.RGBA{255, 0, 0, 255}
		for _, pt := range [][2]int{{1, 14}, {8, 8}, {1, 1}, {14, 14}} {
			assert.Equal(t, red, tex.Image().RGBAAt(pt[0], pt[1]), "blend=%v pixel %v", blend, pt)
		}
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, tex.Image().RGBAAt(15, 2), "blend=%v covered pixel", blend)
	}
}

func TestSurface(t *testing.T) {
	s := NewSurface()
	assert.Equal(t, gpu.TextureFormatBGRA8UnormSrgb, s.PreferredFormat())
	assert.Equal(t, gpu.TextureFormatRGBA8Unorm, NewSurface(gpu.TextureFormatRGBA8Unorm).PreferredFormat())

	_, err := s.Acquire()
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.ErrorIs(t, s.Configure(0, 10, gpu.TextureFormatBGRA8Unorm), gpu.ErrValidation)
	assert.ErrorIs(t, s.Configure(10, 10, gpu.TextureFormatRGBA8Unorm), gpu.ErrValidation)
	require.NoError(t, s.Configure(10, 6, gpu.TextureFormatBGRA8Unorm))
	assert.Equal(t, gpu.SurfaceConfiguration{Width: 10, Height: 6, Format: gpu.TextureFormatBGRA8Unorm}, s.Configuration())

	s.FailNextAcquire(nil)
	_, err = s.Acquire()
	assert.ErrorIs(t, err, ErrAcquireFailed)

	f, err := s.Acquire()
	require.NoError(t, err)
	_, err = s.Acquire()
	assert.ErrorIs(t, err, gpu.ErrValidation, "one image in flight")

	f.Present()
	f.Present()
	assert.Equal(t, 1, s.PresentCount())
	assert.Equal(t, 10, s.Presented().Bounds().Dx())
	assert.Equal(t, gpu.TextureFormatBGRA8Unorm, f.Target().Format())

	f, err = s.Acquire()
	require.NoError(t, err)
	f.Discard()
	assert.Equal(t, 1, s.PresentCount())
}
