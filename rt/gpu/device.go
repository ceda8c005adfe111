package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrAllocation is returned when a device cannot back a requested resource.
	ErrAllocation = errors.New("gpu: allocation failed")
	// ErrValidation mirrors a WebGPU validation error: bad usage, alignment or bounds.
	ErrValidation = errors.New("gpu: validation error")
	// ErrLayoutMismatch is returned when a presenter is given derived buffers it cannot read.
	ErrLayoutMismatch = errors.New("gpu: derived layout does not match presentation strategy")
)

// BufferUsage is a bit set of the ways a buffer may be bound or copied.
type BufferUsage uint32

const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
)

// Has reports whether every bit of flag is set.
func (u BufferUsage) Has(flag BufferUsage) bool { return u&flag == flag }

// BufferDescriptor describes a buffer. When Contents is set the buffer is
// created with those bytes and Size may be left zero.
type BufferDescriptor struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Contents []byte
}

type Buffer interface {
	Label() string
	Size() uint64
	Usage() BufferUsage
	Release()
}

// BindingType is the kind of a compute binding slot.
type BindingType int

const (
	BindingUniform BindingType = iota
	BindingStorage
)

// ComputePipelineDescriptor carries a compute module and its binding contract.
// Bindings[i] is the type of @binding(i) in @group(0).
type ComputePipelineDescriptor struct {
	Label         string
	WGSL          string
	EntryPoint    string
	WorkgroupSize uint32
	Bindings      []BindingType
	Host          HostKernel
}

type ComputePipeline interface {
	Label() string
	Release()
}

type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
}

type BindGroupDescriptor struct {
	Label    string
	Pipeline ComputePipeline
	Entries  []BindGroupEntry
}

type BindGroup interface {
	Release()
}

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x4
)

// Size returns the byte size of one attribute of format f.
func (f VertexFormat) Size() uint64 {
	if f == VertexFormatFloat32x4 {
		return 16
	}
	return 8
}

type StepMode int

const (
	StepModeVertex StepMode = iota
	StepModeInstance
)

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

type VertexBufferLayout struct {
	ArrayStride uint64
	StepMode    StepMode
	Attributes  []VertexAttribute
}

type Topology int

const (
	TopologyPointList Topology = iota
	TopologyTriangleList
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// RenderPipelineDescriptor carries a render module with one color target.
type RenderPipelineDescriptor struct {
	Label         string
	WGSL          string
	VertexEntry   string
	FragmentEntry string
	Buffers       []VertexBufferLayout
	Topology      Topology
	Format        TextureFormat
	AlphaBlend    bool
	Host          HostVertex
}

type RenderPipeline interface {
	Label() string
	Release()
}

type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
)

// IsSrgb reports whether f stores sRGB-encoded color.
func (f TextureFormat) IsSrgb() bool {
	return f == TextureFormatBGRA8UnormSrgb || f == TextureFormatRGBA8UnormSrgb
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	}
	return "undefined"
}

type Color struct {
	R, G, B, A float64
}

// RenderTarget is a texture view that a render pass draws into.
type RenderTarget interface {
	Format() TextureFormat
}

type RenderPassDescriptor struct {
	Label  string
	Target RenderTarget
	Clear  Color
}

type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End() error
}

// CommandEncoder records commands. Nothing executes before Device.Submit.
type CommandEncoder interface {
	Dispatch(p ComputePipeline, group BindGroup, x, y, z uint32) error
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error)
	Finish() (CommandBuffer, error)
	// Release drops an encoder that will not be finished. It is a no-op
	// after Finish.
	Release()
}

type CommandBuffer interface {
	Release()
}

// Device is the narrow slice of a WebGPU device and its single queue that
// the particle pipeline consumes.
type Device interface {
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	Submit(cmds ...CommandBuffer) error
}

type SurfaceConfiguration struct {
	Width  uint32
	Height uint32
	Format TextureFormat
}

// Surface is a presentable swapchain.
type Surface interface {
	Configure(width, height uint32, format TextureFormat) error
	Configuration() SurfaceConfiguration
	PreferredFormat() TextureFormat
	Acquire() (Frame, error)
	Release()
}

// Frame is one acquired swapchain image. Exactly one of Present or Discard
// must be called.
type Frame interface {
	Target() RenderTarget
	Present()
	Discard()
}

// HostKernel is the CPU rendition of a compute entry point, invoked once per
// global invocation id. bindings[i] aliases the bytes of @binding(i).
type HostKernel func(gid uint32, bindings [][]byte)

// HostVertex is the CPU rendition of a vertex entry point. in[loc] holds the
// attribute at @location(loc) widened to four components, missing ones taken from (0, 0, 0, 1).
type HostVertex func(in []mgl32.Vec4) (clip mgl32.Vec4, color mgl32.Vec4)
