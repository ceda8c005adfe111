package native

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlelife/rt/gpu"
)

type Encoder struct {
	enc   *wgpu.CommandEncoder
	label string
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &Encoder{enc: enc, label: label}, nil
}

func (e *Encoder) Dispatch(p gpu.ComputePipeline, group gpu.BindGroup, x, y, z uint32) error {
	if err := e.recording(); err != nil {
		return err
	}
	pipeline, ok := p.(*ComputePipeline)
	if !ok {
		return fmt.Errorf("%w: foreign compute pipeline", gpu.ErrValidation)
	}
	bg, ok := group.(*BindGroup)
	if !ok {
		return fmt.Errorf("%w: foreign bind group", gpu.ErrValidation)
	}
	pass := e.enc.BeginComputePass(nil)
	defer pass.Release()
	pass.SetPipeline(pipeline.pipeline)
	pass.SetBindGroup(0, bg.group, nil)
	pass.DispatchWorkgroups(x, y, z)
	if err := pass.End(); err != nil {
		return fmt.Errorf("compute pass %q: %w", pipeline.label, err)
	}
	return nil
}

func (e *Encoder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	if err := e.recording(); err != nil {
		return err
	}
	s, ok := src.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: foreign copy source", gpu.ErrValidation)
	}
	d, ok := dst.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: foreign copy destination", gpu.ErrValidation)
	}
	if err := e.enc.CopyBufferToBuffer(s.buf, srcOffset, d.buf, dstOffset, size); err != nil {
		return fmt.Errorf("copy %q to %q: %w", s.label, d.label, err)
	}
	return nil
}

func (e *Encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if err := e.recording(); err != nil {
		return nil, err
	}
	view, ok := desc.Target.(*TextureView)
	if !ok {
		return nil, fmt.Errorf("%w: render target is not a native texture view", gpu.ErrValidation)
	}
	pass := e.enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: desc.Clear.R, G: desc.Clear.G, B: desc.Clear.B, A: desc.Clear.A},
		}},
	})
	return &RenderPass{pass: pass}, nil
}

func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	if err := e.recording(); err != nil {
		return nil, err
	}
	cmd, err := e.enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish %q: %w", e.label, err)
	}
	e.Release()
	return &CommandBuffer{cmd: cmd}, nil
}

func (e *Encoder) Release() {
	if e.enc != nil {
		e.enc.Release()
		e.enc = nil
	}
}

func (e *Encoder) recording() error {
	if e.enc == nil {
		return fmt.Errorf("%w: encoder %q already finished", gpu.ErrValidation, e.label)
	}
	return nil
}

type CommandBuffer struct {
	cmd *wgpu.CommandBuffer
}

func (c *CommandBuffer) Release() {
	if c.cmd != nil {
		c.cmd.Release()
		c.cmd = nil
	}
}

type RenderPass struct {
	pass *wgpu.RenderPassEncoder
	err  error
}

func (p *RenderPass) SetPipeline(rp gpu.RenderPipeline) {
	pipeline, ok := rp.(*RenderPipeline)
	if !ok {
		p.err = fmt.Errorf("%w: foreign render pipeline", gpu.ErrValidation)
		return
	}
	p.pass.SetPipeline(pipeline.pipeline)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	b, ok := buf.(*Buffer)
	if !ok {
		p.err = fmt.Errorf("%w: foreign vertex buffer", gpu.ErrValidation)
		return
	}
	p.pass.SetVertexBuffer(slot, b.buf, 0, b.buf.GetSize())
}

func (p *RenderPass) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	b, ok := buf.(*Buffer)
	if !ok {
		p.err = fmt.Errorf("%w: foreign index buffer", gpu.ErrValidation)
		return
	}
	p.pass.SetIndexBuffer(b.buf, indexFormat(format), 0, b.buf.GetSize())
}

func (p *RenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *RenderPass) End() error {
	defer p.pass.Release()
	if err := p.pass.End(); err != nil {
		return err
	}
	return p.err
}
