package native

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlelife/rt/gpu"
)

// Device implements gpu.Device over a wgpu device and its queue.
type Device struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

type Buffer struct {
	buf   *wgpu.Buffer
	label string
	usage gpu.BufferUsage
}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() uint64           { return b.buf.GetSize() }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }
func (b *Buffer) Release()               { b.buf.Release() }

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	var (
		buf *wgpu.Buffer
		err error
	)
	if desc.Contents != nil {
		contents := desc.Contents
		if uint64(len(contents)) < desc.Size {
			contents = append(append([]byte(nil), contents...), make([]byte, desc.Size-uint64(len(contents)))...)
		}
		buf, err = d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    desc.Label,
			Contents: contents,
			Usage:    bufferUsage(desc.Usage),
		})
	} else {
		buf, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label,
			Size:  desc.Size,
			Usage: bufferUsage(desc.Usage),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gpu.ErrAllocation, desc.Label, err)
	}
	return &Buffer{buf: buf, label: desc.Label, usage: desc.Usage}, nil
}

type ComputePipeline struct {
	label    string
	pipeline *wgpu.ComputePipeline
}

func (p *ComputePipeline) Label() string { return p.label }
func (p *ComputePipeline) Release()      { p.pipeline.Release() }

// CreateComputePipeline compiles desc.WGSL with an auto layout. The layout
// of @group(0) is read back for bind groups.
func (d *Device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.WGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %q: %w", desc.Label, err)
	}
	defer module.Release()

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: desc.Label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ComputePipeline{label: desc.Label, pipeline: pipeline}, nil
}

type RenderPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
}

func (p *RenderPipeline) Label() string { return p.label }
func (p *RenderPipeline) Release()      { p.pipeline.Release() }

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.WGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %q: %w", desc.Label, err)
	}
	defer module.Release()

	layouts := make([]wgpu.VertexBufferLayout, len(desc.Buffers))
	for i, l := range desc.Buffers {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		layouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    stepMode(l.StepMode),
			Attributes:  attrs,
		}
	}

	var blend *wgpu.BlendState
	if desc.AlphaBlend {
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}

	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    textureFormat(desc.Format),
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &RenderPipeline{label: desc.Label, pipeline: pipeline}, nil
}

type BindGroup struct {
	group *wgpu.BindGroup
}

func (g *BindGroup) Release() { g.group.Release() }

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	p, ok := desc.Pipeline.(*ComputePipeline)
	if !ok {
		return nil, fmt.Errorf("%w: bind group %q layout is not a native compute pipeline", gpu.ErrValidation, desc.Label)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		b, ok := e.Buffer.(*Buffer)
		if !ok {
			return nil, fmt.Errorf("%w: bind group %q binding %d is not a native buffer", gpu.ErrValidation, desc.Label, e.Binding)
		}
		entries[i] = wgpu.BindGroupEntry{Binding: e.Binding, Buffer: b.buf, Size: wgpu.WholeSize}
	}
	layout := p.pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroup{group: group}, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: write to foreign buffer", gpu.ErrValidation)
	}
	if err := d.queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("write %q: %w", b.label, err)
	}
	return nil
}

func (d *Device) Submit(cmds ...gpu.CommandBuffer) error {
	native := make([]*wgpu.CommandBuffer, 0, len(cmds))
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: foreign command buffer", gpu.ErrValidation)
		}
		native = append(native, cb.cmd)
	}
	d.queue.Submit(native...)
	for _, c := range cmds {
		c.Release()
	}
	return nil
}

func (d *Device) Release() {
	d.queue.Release()
	d.device.Release()
}
