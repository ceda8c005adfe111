package soft

import (
	"errors"
	"fmt"

	"github.com/gekko3d/particlelife/rt/gpu"
)

var (
	errEncoderFinished = errors.New("encoder already finished")
	errPassOpen        = errors.New("render pass in progress")
)

type CommandKind int

const (
	CommandDispatch CommandKind = iota
	CommandCopy
	CommandRenderPass
)

func (k CommandKind) String() string {
	switch k {
	case CommandDispatch:
		return "dispatch"
	case CommandCopy:
		return "copy"
	case CommandRenderPass:
		return "render"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one executed command in the submission log.
type Command struct {
	Kind       CommandKind
	Label      string
	Workgroups [3]uint32
	Draws      int
}

// Submission is one executed command buffer.
type Submission struct {
	Label    string
	Commands []Command
}

// Kinds flattens the command kinds of a submission.
func (s Submission) Kinds() []CommandKind {
	out := make([]CommandKind, len(s.Commands))
	for i, c := range s.Commands {
		out[i] = c.Kind
	}
	return out
}

type recorded struct {
	info Command
	run  func() error
}

// Encoder records commands for one CommandBuffer.
type Encoder struct {
	dev      *Device
	label    string
	cmds     []recorded
	pass     *RenderPass
	finished bool
}

func (e *Encoder) checkRecording() error {
	if e.finished {
		return fmt.Errorf("%w: %v", gpu.ErrValidation, errEncoderFinished)
	}
	if e.pass != nil {
		return fmt.Errorf("%w: %v", gpu.ErrValidation, errPassOpen)
	}
	return nil
}

func (e *Encoder) Dispatch(p gpu.ComputePipeline, group gpu.BindGroup, x, y, z uint32) error {
	if err := e.checkRecording(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	pipeline, ok := p.(*ComputePipeline)
	if !ok {
		return fmt.Errorf("%w: dispatch: foreign compute pipeline", gpu.ErrValidation)
	}
	bg, ok := group.(*BindGroup)
	if !ok || bg.pipeline != pipeline {
		return fmt.Errorf("%w: dispatch %q: bind group was not created for this pipeline", gpu.ErrValidation, pipeline.label)
	}

	e.cmds = append(e.cmds, recorded{
		info: Command{Kind: CommandDispatch, Label: pipeline.label, Workgroups: [3]uint32{x, y, z}},
		run: func() error {
			bindings := make([][]byte, len(bg.buffers))
			for i, b := range bg.buffers {
				if b.released {
					return fmt.Errorf("%w: binding %d buffer %q released", gpu.ErrValidation, i, b.label)
				}
				bindings[i] = b.data
			}
			for wz := uint32(0); wz < z; wz++ {
				for wy := uint32(0); wy < y; wy++ {
					for wx := uint32(0); wx < x; wx++ {
						for l := uint32(0); l < pipeline.size; l++ {
							pipeline.host(wx*pipeline.size+l, bindings)
						}
					}
				}
			}
			return nil
		},
	})
	return nil
}

// CopyBufferToBuffer validates like WebGPU: CopySrc on the source, CopyDst
// on the destination, 4-byte aligned offsets and size, in bounds and no
// overlap within the same buffer.
func (e *Encoder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	if err := e.checkRecording(); err != nil {
		return fmt.Errorf("copy buffer to buffer: %w", err)
	}
	s, err := asBuffer(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	d, err := asBuffer(dst)
	if err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	switch {
	case !s.usage.Has(gpu.BufferUsageCopySrc):
		return fmt.Errorf("%w: copy source %q lacks CopySrc", gpu.ErrValidation, s.label)
	case !d.usage.Has(gpu.BufferUsageCopyDst):
		return fmt.Errorf("%w: copy destination %q lacks CopyDst", gpu.ErrValidation, d.label)
	case srcOffset%4 != 0, dstOffset%4 != 0, size%4 != 0:
		return fmt.Errorf("%w: copy %d bytes from %d to %d is not 4-byte aligned", gpu.ErrValidation, size, srcOffset, dstOffset)
	case srcOffset+size > s.Size():
		return fmt.Errorf("%w: copy source range %d+%d exceeds %q size %d", gpu.ErrValidation, srcOffset, size, s.label, s.Size())
	case dstOffset+size > d.Size():
		return fmt.Errorf("%w: copy destination range %d+%d exceeds %q size %d", gpu.ErrValidation, dstOffset, size, d.label, d.Size())
	case s == d && srcOffset < dstOffset+size && dstOffset < srcOffset+size:
		return fmt.Errorf("%w: copy within %q overlaps", gpu.ErrValidation, s.label)
	}

	e.cmds = append(e.cmds, recorded{
		info: Command{Kind: CommandCopy, Label: d.label},
		run: func() error {
			if s.released || d.released {
				return fmt.Errorf("%w: copy between released buffers", gpu.ErrValidation)
			}
			copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
			return nil
		},
	})
	return nil
}

func (e *Encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if err := e.checkRecording(); err != nil {
		return nil, fmt.Errorf("begin render pass: %w", err)
	}
	tex, ok := desc.Target.(*Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("%w: render pass %q target is not a soft texture", gpu.ErrValidation, desc.Label)
	}
	e.pass = &RenderPass{enc: e, label: desc.Label, target: tex, clear: desc.Clear}
	return e.pass, nil
}

func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	if err := e.checkRecording(); err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	e.finished = true
	return &CommandBuffer{dev: e.dev, label: e.label, cmds: e.cmds}, nil
}

func (e *Encoder) Release() {
	if e.finished {
		return
	}
	e.finished = true
	e.pass = nil
	e.cmds = nil
	e.dev.closeCommand()
}

type CommandBuffer struct {
	dev      *Device
	label    string
	cmds     []recorded
	consumed bool
}

// Release drops an unsubmitted command buffer. Submitted buffers are
// already consumed.
func (c *CommandBuffer) Release() {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.consumed {
		return
	}
	c.consumed = true
	c.cmds = nil
	c.dev.open--
}

type drawCall struct {
	pipeline  *RenderPipeline
	vertex    []*Buffer
	index     *Buffer
	format    gpu.IndexFormat
	count     uint32
	instances uint32
	indexed   bool
}

// RenderPass records draws. Validation errors are deferred to End, as in
// WebGPU where pass errors surface when the pass is closed.
type RenderPass struct {
	enc      *Encoder
	label    string
	target   *Texture
	clear    gpu.Color
	pipeline *RenderPipeline
	vertex   []*Buffer
	index    *Buffer
	format   gpu.IndexFormat
	draws    []drawCall
	err      error
}

func (p *RenderPass) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: render pass %q: %s", gpu.ErrValidation, p.label, fmt.Sprintf(format, args...))
	}
}

func (p *RenderPass) SetPipeline(rp gpu.RenderPipeline) {
	pipeline, ok := rp.(*RenderPipeline)
	if !ok {
		p.fail("foreign render pipeline")
		return
	}
	if pipeline.desc.Format != p.target.format {
		p.fail("pipeline %q targets %s, attachment is %s", pipeline.desc.Label, pipeline.desc.Format, p.target.format)
		return
	}
	p.pipeline = pipeline
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	b, err := asBuffer(buf)
	if err != nil {
		p.fail("vertex slot %d: %v", slot, err)
		return
	}
	if !b.usage.Has(gpu.BufferUsageVertex) {
		p.fail("vertex slot %d buffer %q lacks Vertex usage", slot, b.label)
		return
	}
	for uint32(len(p.vertex)) <= slot {
		p.vertex = append(p.vertex, nil)
	}
	p.vertex[slot] = b
}

func (p *RenderPass) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	b, err := asBuffer(buf)
	if err != nil {
		p.fail("index buffer: %v", err)
		return
	}
	if !b.usage.Has(gpu.BufferUsageIndex) {
		p.fail("index buffer %q lacks Index usage", b.label)
		return
	}
	p.index, p.format = b, format
}

func (p *RenderPass) record(count, instances uint32, indexed bool) {
	if p.pipeline == nil {
		p.fail("draw without pipeline")
		return
	}
	if len(p.vertex) < len(p.pipeline.desc.Buffers) {
		p.fail("pipeline %q needs %d vertex buffers, %d set", p.pipeline.desc.Label, len(p.pipeline.desc.Buffers), len(p.vertex))
		return
	}
	for i := range p.pipeline.desc.Buffers {
		if p.vertex[i] == nil {
			p.fail("vertex slot %d unset", i)
			return
		}
	}
	if indexed && p.index == nil {
		p.fail("indexed draw without index buffer")
		return
	}
	p.draws = append(p.draws, drawCall{
		pipeline:  p.pipeline,
		vertex:    append([]*Buffer(nil), p.vertex...),
		index:     p.index,
		format:    p.format,
		count:     count,
		instances: instances,
		indexed:   indexed,
	})
}

func (p *RenderPass) Draw(vertexCount, instanceCount uint32) {
	p.record(vertexCount, instanceCount, false)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.record(indexCount, instanceCount, true)
}

func (p *RenderPass) End() error {
	if p.enc.pass != p {
		return fmt.Errorf("%w: render pass %q ended twice", gpu.ErrValidation, p.label)
	}
	p.enc.pass = nil
	if p.err != nil {
		return p.err
	}
	target, clear, draws := p.target, p.clear, p.draws
	p.enc.cmds = append(p.enc.cmds, recorded{
		info: Command{Kind: CommandRenderPass, Label: p.label, Draws: len(draws)},
		run: func() error {
			target.fill(clear)
			for i := range draws {
				if err := rasterize(target, &draws[i]); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return nil
}
