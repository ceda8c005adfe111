package core

import "fmt"

// Layout selects how presentation data is derived from the authoritative buffer.
type Layout int

const (
	// LayoutInterleaved stores {position, color} per particle in a single stream.
	LayoutInterleaved Layout = iota
	// LayoutSplit stores positions and colors in two parallel streams.
	LayoutSplit
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return "interleaved"
	case LayoutSplit:
		return "split"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// ParseLayout accepts the names produced by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "interleaved":
		return LayoutInterleaved, nil
	case "split":
		return LayoutSplit, nil
	}
	return 0, fmt.Errorf("unknown layout %q", s)
}

// Stream describes one derived buffer: which bytes of each authoritative
// record it holds and how far apart consecutive elements are.
type Stream struct {
	Name    string
	Stride  uint64
	Regions []Region
}

// Region maps a byte range of an authoritative record to an offset inside
// one element of a derived stream.
type Region struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// Streams returns the derived streams for l, in binding order.
func (l Layout) Streams() []Stream {
	switch l {
	case LayoutInterleaved:
		return []Stream{{
			Name:   "vertices",
			Stride: VertexStride,
			Regions: []Region{
				{SrcOffset: PositionOffset, DstOffset: 0, Size: PositionSize},
				{SrcOffset: ColorOffset, DstOffset: PositionSize, Size: ColorSize},
			},
		}}
	case LayoutSplit:
		return []Stream{
			{
				Name:    "positions",
				Stride:  PositionStride,
				Regions: []Region{{SrcOffset: PositionOffset, DstOffset: 0, Size: PositionSize}},
			},
			{
				Name:    "colors",
				Stride:  ColorStride,
				Regions: []Region{{SrcOffset: ColorOffset, DstOffset: 0, Size: ColorSize}},
			},
		}
	}
	return nil
}

// Project encodes particles into the bytes of stream s. It is the host
// rendition of the GPU-side derivation and is used for initial contents.
func (s Stream) Project(particles []Particle) []byte {
	src := ParticleBytes(particles)
	out := make([]byte, uint64(len(particles))*s.Stride)
	for i := range particles {
		base := uint64(i) * ParticleStride
		dst := uint64(i) * s.Stride
		for _, r := range s.Regions {
			copy(out[dst+r.DstOffset:dst+r.DstOffset+r.Size], src[base+r.SrcOffset:base+r.SrcOffset+r.Size])
		}
	}
	return out
}

// PresentationKind selects the draw strategy.
type PresentationKind int

const (
	// PresentPoints draws one point per particle.
	PresentPoints PresentationKind = iota
	// PresentInstancedQuads draws a small quad per particle via instancing.
	PresentInstancedQuads
)

func (k PresentationKind) String() string {
	switch k {
	case PresentPoints:
		return "point-list"
	case PresentInstancedQuads:
		return "instanced-quad"
	}
	return fmt.Sprintf("PresentationKind(%d)", int(k))
}

// ParsePresentationKind accepts the names produced by PresentationKind.String.
func ParsePresentationKind(s string) (PresentationKind, error) {
	switch s {
	case "point-list", "points":
		return PresentPoints, nil
	case "instanced-quad", "quads":
		return PresentInstancedQuads, nil
	}
	return 0, fmt.Errorf("unknown presentation strategy %q", s)
}

// Layout returns the only derived layout the strategy can consume.
func (k PresentationKind) Layout() Layout {
	if k == PresentInstancedQuads {
		return LayoutSplit
	}
	return LayoutInterleaved
}
