package soft

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gekko3d/particlelife/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Texture is a render target backed by an RGBA image. Color is stored as
// written, sRGB formats are not re-encoded.
type Texture struct {
	img    *image.RGBA
	format gpu.TextureFormat
	raster *vector.Rasterizer
}

func NewTexture(width, height int, format gpu.TextureFormat) *Texture {
	return &Texture{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		format: format,
		raster: vector.NewRasterizer(width, height),
	}
}

func (t *Texture) Format() gpu.TextureFormat { return t.format }
func (t *Texture) Image() *image.RGBA        { return t.img }

func (t *Texture) fill(c gpu.Color) {
	src := image.NewUniform(toNRGBA(float32(c.R), float32(c.G), float32(c.B), float32(c.A)))
	draw.Draw(t.img, t.img.Bounds(), src, image.Point{}, draw.Src)
}

// toPixel maps clip space to framebuffer coordinates, y down.
func (t *Texture) toPixel(clip mgl32.Vec4) (float32, float32, bool) {
	if clip[3] == 0 {
		return 0, 0, false
	}
	b := t.img.Bounds()
	x := (clip[0]/clip[3] + 1) * 0.5 * float32(b.Dx())
	y := (1 - clip[1]/clip[3]) * 0.5 * float32(b.Dy())
	return x, y, true
}

func (t *Texture) plot(clip, col mgl32.Vec4, op draw.Op) {
	x, y, ok := t.toPixel(clip)
	if !ok {
		return
	}
	ix, iy := int(math.Floor(float64(x))), int(math.Floor(float64(y)))
	if !image.Pt(ix, iy).In(t.img.Bounds()) {
		return
	}
	src := image.NewUniform(toNRGBA(col[0], col[1], col[2], col[3]))
	draw.Draw(t.img, image.Rect(ix, iy, ix+1, iy+1), src, image.Point{}, op)
}

// fillTriangle shades flat with the provoking vertex color. Coverage is
// rasterized over the triangle's bounding box only, so pixels outside it
// keep their value under either op. Src replaces covered pixels, blending
// by coverage at the edges.
func (t *Texture) fillTriangle(v [3]mgl32.Vec4, col mgl32.Vec4, op draw.Op) {
	var pts [3][2]float32
	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for i := range v {
		x, y, ok := t.toPixel(v[i])
		if !ok {
			return
		}
		pts[i] = [2]float32{x, y}
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	bbox := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	).Intersect(t.img.Bounds())
	if bbox.Empty() {
		return
	}

	mask := image.NewAlpha(image.Rect(0, 0, bbox.Dx(), bbox.Dy()))
	ox, oy := float32(bbox.Min.X), float32(bbox.Min.Y)
	t.raster.Reset(bbox.Dx(), bbox.Dy())
	t.raster.DrawOp = draw.Src
	t.raster.MoveTo(pts[0][0]-ox, pts[0][1]-oy)
	t.raster.LineTo(pts[1][0]-ox, pts[1][1]-oy)
	t.raster.LineTo(pts[2][0]-ox, pts[2][1]-oy)
	t.raster.ClosePath()
	t.raster.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	src := toNRGBA(col[0], col[1], col[2], col[3])
	if op == draw.Over {
		draw.DrawMask(t.img, bbox, image.NewUniform(src), image.Point{}, mask, image.Point{}, draw.Over)
		return
	}
	sc := color.RGBAModel.Convert(src).(color.RGBA)
	for y := bbox.Min.Y; y < bbox.Max.Y; y++ {
		for x := bbox.Min.X; x < bbox.Max.X; x++ {
			cov := uint32(mask.AlphaAt(x-bbox.Min.X, y-bbox.Min.Y).A)
			if cov == 0 {
				continue
			}
			t.img.SetRGBA(x, y, mixRGBA(t.img.RGBAAt(x, y), sc, cov))
		}
	}
}

// mixRGBA moves dst toward src by cov/255, in premultiplied space.
func mixRGBA(dst, src color.RGBA, cov uint32) color.RGBA {
	mix := func(d, s uint8) uint8 {
		return uint8((uint32(d)*(255-cov) + uint32(s)*cov + 127) / 255)
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: mix(dst.A, src.A)}
}

func toNRGBA(r, g, b, a float32) color.NRGBA {
	return color.NRGBA{R: unorm8(r), G: unorm8(g), B: unorm8(b), A: unorm8(a)}
}

func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func rasterize(t *Texture, dc *drawCall) error {
	desc := &dc.pipeline.desc
	op := draw.Src
	if desc.AlphaBlend {
		op = draw.Over
	}

	maxLoc := uint32(0)
	for _, l := range desc.Buffers {
		for _, a := range l.Attributes {
			if a.ShaderLocation > maxLoc {
				maxLoc = a.ShaderLocation
			}
		}
	}
	in := make([]mgl32.Vec4, maxLoc+1)

	fetch := func(vertex, instance uint32) error {
		for slot, l := range desc.Buffers {
			elem := vertex
			if l.StepMode == gpu.StepModeInstance {
				elem = instance
			}
			data := dc.vertex[slot].data
			for _, a := range l.Attributes {
				off := uint64(elem)*l.ArrayStride + a.Offset
				n := a.Format.Size()
				if off+n > uint64(len(data)) {
					return fmt.Errorf("%w: vertex fetch slot %d element %d out of range", gpu.ErrValidation, slot, elem)
				}
				v := mgl32.Vec4{0, 0, 0, 1}
				for c := uint64(0); c < n/4; c++ {
					v[c] = math.Float32frombits(binary.LittleEndian.Uint32(data[off+4*c:]))
				}
				in[a.ShaderLocation] = v
			}
		}
		return nil
	}

	vertexAt := func(i uint32) (uint32, error) {
		if !dc.indexed {
			return i, nil
		}
		data := dc.index.data
		if dc.format == gpu.IndexFormatUint32 {
			if uint64(i)*4+4 > uint64(len(data)) {
				return 0, fmt.Errorf("%w: index %d out of range", gpu.ErrValidation, i)
			}
			return binary.LittleEndian.Uint32(data[4*i:]), nil
		}
		if uint64(i)*2+2 > uint64(len(data)) {
			return 0, fmt.Errorf("%w: index %d out of range", gpu.ErrValidation, i)
		}
		return uint32(binary.LittleEndian.Uint16(data[2*i:])), nil
	}

	shade := func(i, inst uint32) (mgl32.Vec4, mgl32.Vec4, error) {
		v, err := vertexAt(i)
		if err != nil {
			return mgl32.Vec4{}, mgl32.Vec4{}, err
		}
		if err := fetch(v, inst); err != nil {
			return mgl32.Vec4{}, mgl32.Vec4{}, err
		}
		clip, col := desc.Host(in)
		return clip, col, nil
	}

	for inst := uint32(0); inst < dc.instances; inst++ {
		switch desc.Topology {
		case gpu.TopologyPointList:
			for i := uint32(0); i < dc.count; i++ {
				clip, col, err := shade(i, inst)
				if err != nil {
					return err
				}
				t.plot(clip, col, op)
			}
		case gpu.TopologyTriangleList:
			for i := uint32(0); i+2 < dc.count; i += 3 {
				var tri [3]mgl32.Vec4
				var first mgl32.Vec4
				for k := uint32(0); k < 3; k++ {
					clip, col, err := shade(i+k, inst)
					if err != nil {
						return err
					}
					tri[k] = clip
					if k == 0 {
						first = col
					}
				}
				t.fillTriangle(tri, first, op)
			}
		}
	}
	return nil
}
