// Package soft is an in-memory CPU implementation of the gpu interfaces.
// Commands are recorded and executed in order at Submit, compute runs the
// pipeline's host kernel and render passes rasterize into an image.RGBA.
package soft

import (
	"fmt"
	"sync"

	"github.com/gekko3d/particlelife/rt/gpu"
)

// DefaultMaxBufferSize is the WebGPU default maxBufferSize limit.
const DefaultMaxBufferSize = 256 << 20

type Config struct {
	MaxBufferSize uint64
}

// Device implements gpu.Device with a single synchronous queue.
type Device struct {
	mu          sync.Mutex
	cfg         Config
	submissions []Submission
	live        int
	// open counts encoders and command buffers neither submitted nor released.
	open int
}

func NewDevice(cfg Config) *Device {
	if cfg.MaxBufferSize == 0 {
		cfg.MaxBufferSize = DefaultMaxBufferSize
	}
	return &Device{cfg: cfg}
}

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	size := desc.Size
	if size == 0 {
		size = uint64(len(desc.Contents))
	}
	if uint64(len(desc.Contents)) > size {
		return nil, fmt.Errorf("%w: buffer %q contents (%d bytes) exceed size %d", gpu.ErrValidation, desc.Label, len(desc.Contents), size)
	}
	if desc.Contents != nil && size%4 != 0 {
		return nil, fmt.Errorf("%w: buffer %q initialized with unaligned size %d", gpu.ErrValidation, desc.Label, size)
	}
	if size > d.cfg.MaxBufferSize {
		return nil, fmt.Errorf("%w: buffer %q size %d exceeds limit %d", gpu.ErrAllocation, desc.Label, size, d.cfg.MaxBufferSize)
	}
	b := &Buffer{dev: d, label: desc.Label, usage: desc.Usage, data: make([]byte, size)}
	copy(b.data, desc.Contents)

	d.mu.Lock()
	d.live++
	d.mu.Unlock()
	return b, nil
}

func (d *Device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipeline, error) {
	if desc.Host == nil {
		return nil, fmt.Errorf("%w: compute pipeline %q has no host kernel", gpu.ErrValidation, desc.Label)
	}
	if desc.WorkgroupSize == 0 {
		return nil, fmt.Errorf("%w: compute pipeline %q has zero workgroup size", gpu.ErrValidation, desc.Label)
	}
	return &ComputePipeline{
		label:    desc.Label,
		host:     desc.Host,
		size:     desc.WorkgroupSize,
		bindings: append([]gpu.BindingType(nil), desc.Bindings...),
	}, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if desc.Host == nil {
		return nil, fmt.Errorf("%w: render pipeline %q has no host vertex stage", gpu.ErrValidation, desc.Label)
	}
	if desc.Format == gpu.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: render pipeline %q has no target format", gpu.ErrValidation, desc.Label)
	}
	for i, l := range desc.Buffers {
		for _, a := range l.Attributes {
			if a.Offset+a.Format.Size() > l.ArrayStride {
				return nil, fmt.Errorf("%w: pipeline %q buffer %d attribute @location(%d) exceeds stride", gpu.ErrValidation, desc.Label, i, a.ShaderLocation)
			}
		}
	}
	p := &RenderPipeline{desc: *desc}
	p.desc.Buffers = append([]gpu.VertexBufferLayout(nil), desc.Buffers...)
	return p, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	p, ok := desc.Pipeline.(*ComputePipeline)
	if !ok {
		return nil, fmt.Errorf("%w: bind group %q layout is not a soft compute pipeline", gpu.ErrValidation, desc.Label)
	}
	if len(desc.Entries) != len(p.bindings) {
		return nil, fmt.Errorf("%w: bind group %q has %d entries, layout wants %d", gpu.ErrValidation, desc.Label, len(desc.Entries), len(p.bindings))
	}
	bg := &BindGroup{pipeline: p, buffers: make([]*Buffer, len(p.bindings))}
	for _, e := range desc.Entries {
		if int(e.Binding) >= len(p.bindings) {
			return nil, fmt.Errorf("%w: bind group %q binding %d not in layout", gpu.ErrValidation, desc.Label, e.Binding)
		}
		b, err := asBuffer(e.Buffer)
		if err != nil {
			return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, err)
		}
		want := gpu.BufferUsageUniform
		if p.bindings[e.Binding] == gpu.BindingStorage {
			want = gpu.BufferUsageStorage
		}
		if !b.usage.Has(want) {
			return nil, fmt.Errorf("%w: bind group %q binding %d buffer %q lacks usage %d", gpu.ErrValidation, desc.Label, e.Binding, b.label, want)
		}
		bg.buffers[e.Binding] = b
	}
	return bg, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &Encoder{dev: d, label: label}, nil
}

// WriteBuffer lands immediately. The queue is synchronous, so this orders
// the write before every later submission.
func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, err := asBuffer(buf)
	if err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	if !b.usage.Has(gpu.BufferUsageCopyDst) {
		return fmt.Errorf("%w: write to buffer %q without CopyDst", gpu.ErrValidation, b.label)
	}
	if offset%4 != 0 || uint64(len(data))%4 != 0 {
		return fmt.Errorf("%w: write to buffer %q at %d of %d bytes is not 4-byte aligned", gpu.ErrValidation, b.label, offset, len(data))
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write to buffer %q out of bounds", gpu.ErrValidation, b.label)
	}
	copy(b.data[offset:], data)
	return nil
}

// Submit executes every command buffer in order and appends it to the
// submission log.
func (d *Device) Submit(cmds ...gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: foreign command buffer", gpu.ErrValidation)
		}
		if cb.consumed {
			return fmt.Errorf("%w: command buffer %q submitted twice", gpu.ErrValidation, cb.label)
		}
		cb.consumed = true
		d.open--

		sub := Submission{Label: cb.label}
		for _, cmd := range cb.cmds {
			if err := cmd.run(); err != nil {
				return fmt.Errorf("submit %q: %s: %w", cb.label, cmd.info.Kind, err)
			}
			sub.Commands = append(sub.Commands, cmd.info)
		}
		d.submissions = append(d.submissions, sub)
	}
	return nil
}

// Submissions returns a copy of the submission log.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// OpenCommands is the number of encoders and command buffers that were
// neither submitted nor released.
func (d *Device) OpenCommands() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Device) closeCommand() {
	d.mu.Lock()
	d.open--
	d.mu.Unlock()
}

// LiveBuffers is the number of created buffers not yet released.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

type ComputePipeline struct {
	label    string
	host     gpu.HostKernel
	size     uint32
	bindings []gpu.BindingType
}

func (p *ComputePipeline) Label() string { return p.label }
func (p *ComputePipeline) Release()      {}

type BindGroup struct {
	pipeline *ComputePipeline
	buffers  []*Buffer
}

func (g *BindGroup) Release() {}

type RenderPipeline struct {
	desc gpu.RenderPipelineDescriptor
}

func (p *RenderPipeline) Label() string { return p.desc.Label }
func (p *RenderPipeline) Release()      {}
