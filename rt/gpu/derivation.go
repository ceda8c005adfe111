package gpu

import (
	"fmt"

	"github.com/gekko3d/particlelife/rt/core"
)

// Copy is one buffer-to-buffer transfer of the derivation plan.
type Copy struct {
	Stream    int
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// Derivation projects the authoritative buffer onto presentation buffers
// with copies recorded in the frame's command stream.
type Derivation struct {
	store   *ParticleStore
	layout  core.Layout
	streams []core.Stream
	buffers []Buffer
	plan    []Copy
}

// NewDerivation allocates one buffer of N × stride bytes per stream of
// layout and precomputes the copy plan. Buffers start with the projection
// of the seeded particles.
func NewDerivation(device Device, store *ParticleStore, layout core.Layout) (*Derivation, error) {
	streams := layout.Streams()
	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: unknown layout %v", ErrValidation, layout)
	}
	d := &Derivation{store: store, layout: layout, streams: streams}
	n := uint64(store.Count())

	for _, s := range streams {
		buf, err := device.CreateBuffer(&BufferDescriptor{
			Label:    "Derived_" + s.Name,
			Size:     n * s.Stride,
			Usage:    BufferUsageVertex | BufferUsageCopyDst,
			Contents: s.Project(store.Seeded()),
		})
		if err != nil {
			d.Release()
			return nil, fmt.Errorf("derived %s buffer: %w", s.Name, err)
		}
		d.buffers = append(d.buffers, buf)
	}

	for i := uint64(0); i < n; i++ {
		for si, s := range streams {
			for _, r := range s.Regions {
				d.plan = append(d.plan, Copy{
					Stream:    si,
					SrcOffset: i*core.ParticleStride + r.SrcOffset,
					DstOffset: i*s.Stride + r.DstOffset,
					Size:      r.Size,
				})
			}
		}
	}
	return d, nil
}

// Encode records the copy plan. It must follow the simulation dispatch and
// precede the render pass in the same command stream.
func (d *Derivation) Encode(enc CommandEncoder) error {
	src := d.store.Buffer()
	for _, c := range d.plan {
		if err := enc.CopyBufferToBuffer(src, c.SrcOffset, d.buffers[c.Stream], c.DstOffset, c.Size); err != nil {
			return fmt.Errorf("derive %s: %w", d.streams[c.Stream].Name, err)
		}
	}
	return nil
}

func (d *Derivation) Layout() core.Layout    { return d.layout }
func (d *Derivation) Streams() []core.Stream { return d.streams }
func (d *Derivation) Plan() []Copy           { return d.plan }
func (d *Derivation) Count() int             { return d.store.Count() }

// Buffer returns the derived buffer of stream i, in Streams order.
func (d *Derivation) Buffer(i int) Buffer { return d.buffers[i] }

func (d *Derivation) Release() {
	for _, b := range d.buffers {
		b.Release()
	}
	d.buffers = nil
}
